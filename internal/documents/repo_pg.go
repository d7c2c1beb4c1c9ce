package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ DocumentsRepo = (*PGRepo)(nil)

const fullColumns = `id, user_id, file_name, file_size, file_type, storage_provider, storage_key, extracted_text, category, sub_category, summary, suggested_queries, created_at`

const listingColumns = `id, user_id, file_name, file_size, file_type, storage_provider, storage_key, '' AS extracted_text, category, sub_category, '' AS summary, '[]'::jsonb AS suggested_queries, created_at`

// Save inserts a new document. Postgres assigns created_at at insert time so
// the column follows insertion order; doc.CreatedAt is replaced.
func (r *PGRepo) Save(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	queries := doc.SuggestedQueries
	if queries == nil {
		queries = []string{}
	}
	rawQueries, err := json.Marshal(queries)
	if err != nil {
		return Document{}, fmt.Errorf("marshal suggested queries: %w", err)
	}

	const query = `
INSERT INTO documents (
    id,
    user_id,
    file_name,
    file_size,
    file_type,
    storage_provider,
    storage_key,
    extracted_text,
    category,
    sub_category,
    summary,
    suggested_queries,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, clock_timestamp())
RETURNING created_at`

	err = r.DB.QueryRowContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.FileName,
		doc.FileSize,
		doc.FileType,
		doc.StorageProvider,
		doc.StorageKey,
		doc.ExtractedText,
		doc.Category,
		doc.SubCategory,
		doc.Summary,
		rawQueries,
	).Scan(&doc.CreatedAt)
	if err != nil {
		return Document{}, err
	}
	doc.SuggestedQueries = queries
	return doc, nil
}

// FindMostRecent returns the newest document across all owners.
func (r *PGRepo) FindMostRecent(ctx context.Context) (Document, error) {
	query := `SELECT ` + fullColumns + `
FROM documents
ORDER BY created_at DESC
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// FindAll returns every document newest first.
func (r *PGRepo) FindAll(ctx context.Context, projection Projection) ([]Document, error) {
	columns := fullColumns
	if projection == ProjectionListing {
		columns = listingColumns
	}
	query := `SELECT ` + columns + `
FROM documents
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanDocuments(rows, projection)
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	query := `SELECT ` + fullColumns + `
FROM documents
WHERE user_id = $1 AND id = $2
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, userID, documentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + fullColumns + `
FROM documents
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanDocuments(rows, ProjectionFull)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var rawQueries []byte
	if err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.FileSize,
		&doc.FileType,
		&doc.StorageProvider,
		&doc.StorageKey,
		&doc.ExtractedText,
		&doc.Category,
		&doc.SubCategory,
		&doc.Summary,
		&rawQueries,
		&doc.CreatedAt,
	); err != nil {
		return Document{}, err
	}
	doc.SuggestedQueries = []string{}
	if len(rawQueries) > 0 {
		if err := json.Unmarshal(rawQueries, &doc.SuggestedQueries); err != nil {
			return Document{}, fmt.Errorf("decode suggested queries for %s: %w", doc.ID, err)
		}
	}
	return doc, nil
}

func scanDocuments(rows *sql.Rows, projection Projection) ([]Document, error) {
	defer rows.Close()
	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, projection.apply(doc))
	}
	return out, rows.Err()
}
