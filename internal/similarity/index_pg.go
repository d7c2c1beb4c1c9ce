package similarity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// PGIndex keeps embeddings in the document_embeddings table.
type PGIndex struct {
	DB *sql.DB
}

// Upsert stores or replaces the embedding of a document.
func (i *PGIndex) Upsert(ctx context.Context, documentID, userID, model string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding for %s", documentID)
	}
	_, err := i.DB.ExecContext(ctx, `
		INSERT INTO document_embeddings (document_id, user_id, model, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id) DO UPDATE
		SET model = EXCLUDED.model, embedding = EXCLUDED.embedding, created_at = now()`,
		documentID, userID, model, pgvector.NewVector(vec),
	)
	return err
}

// Nearest returns up to k documents of userID closest to documentID by cosine similarity.
func (i *PGIndex) Nearest(ctx context.Context, userID, documentID string, k int) ([]Match, error) {
	var source pgvector.Vector
	err := i.DB.QueryRowContext(ctx, `
		SELECT embedding FROM document_embeddings
		WHERE document_id = $1 AND user_id = $2`,
		documentID, userID,
	).Scan(&source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotIndexed
		}
		return nil, err
	}

	rows, err := i.DB.QueryContext(ctx, `
		SELECT document_id, 1 - (embedding <=> $1) AS score
		FROM document_embeddings
		WHERE user_id = $2 AND document_id <> $3
		ORDER BY embedding <=> $1
		LIMIT $4`,
		source, userID, documentID, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.DocumentID, &m.Score); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ Index = (*PGIndex)(nil)
