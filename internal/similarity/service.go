package similarity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/llm"
	"docflow-backend/internal/shared/telemetry"
)

const (
	DefaultK = 5
	MaxK     = 20

	// maxEmbedChars bounds the text sent to the embedding model.
	maxEmbedChars = 8000
)

// DocumentReader loads stored documents for an owner.
type DocumentReader interface {
	Get(ctx context.Context, userID, documentID string) (documents.Document, error)
}

// Service embeds documents and finds similar ones.
type Service struct {
	Embedder llm.Embedder
	Model    string
	Index    Index
	Docs     DocumentReader
}

// Result is one similar document.
type Result struct {
	Document documents.Document
	Score    float64
}

// DocumentIngested indexes a freshly saved document. Documents without text are skipped.
func (s *Service) DocumentIngested(ctx context.Context, doc documents.Document) error {
	return s.index(ctx, doc)
}

// IndexDocument loads a stored document and indexes it.
func (s *Service) IndexDocument(ctx context.Context, userID, documentID string) error {
	doc, err := s.Docs.Get(ctx, userID, documentID)
	if err != nil {
		return err
	}
	return s.index(ctx, doc)
}

func (s *Service) index(ctx context.Context, doc documents.Document) error {
	text := strings.TrimSpace(doc.ExtractedText)
	if text == "" {
		telemetry.Info("similarity.skipped_empty", map[string]any{"document_id": doc.ID})
		return nil
	}
	if utf8.RuneCountInString(text) > maxEmbedChars {
		text = string([]rune(text)[:maxEmbedChars])
	}
	vec, err := s.Embedder.EmbedText(ctx, text)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", doc.ID, err)
	}
	if err := s.Index.Upsert(ctx, doc.ID, doc.UserID, s.Model, vec); err != nil {
		return fmt.Errorf("store embedding %s: %w", doc.ID, err)
	}
	telemetry.Info("similarity.indexed", map[string]any{
		"document_id": doc.ID,
		"dimensions":  len(vec),
	})
	return nil
}

// Similar returns up to k documents of userID similar to documentID. A document
// that exists but has not been indexed yields an empty result.
func (s *Service) Similar(ctx context.Context, userID, documentID string, k int) ([]Result, error) {
	if k <= 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}
	if _, err := s.Docs.Get(ctx, userID, documentID); err != nil {
		return nil, err
	}
	matches, err := s.Index.Nearest(ctx, userID, documentID, k)
	if err != nil {
		if errors.Is(err, ErrNotIndexed) {
			return []Result{}, nil
		}
		return nil, err
	}
	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		doc, err := s.Docs.Get(ctx, userID, m.DocumentID)
		if err != nil {
			if errors.Is(err, documents.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, Result{Document: doc, Score: m.Score})
	}
	return out, nil
}
