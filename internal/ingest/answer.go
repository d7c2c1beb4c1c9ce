package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/telemetry"
)

// Answer responds to question from the most recently ingested document of
// any owner. A failed or empty model answer yields the fallback answer.
func (p *Pipeline) Answer(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	doc, err := p.repo.FindMostRecent(ctx)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return "", ErrNoDocumentAvailable
		}
		return "", fmt.Errorf("%w: load most recent document: %v", ErrPersistence, err)
	}
	return p.answerFrom(ctx, doc, question)
}

// AnswerFor responds to question from one of ownerID's documents.
func (p *Pipeline) AnswerFor(ctx context.Context, ownerID, documentID, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(documentID) == "" {
		return "", fmt.Errorf("%w: owner and document id are required", ErrInvalidInput)
	}
	doc, err := p.repo.GetByID(ctx, ownerID, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return "", fmt.Errorf("%w: %w", ErrNoDocumentAvailable, documents.ErrNotFound)
		}
		return "", fmt.Errorf("%w: load document: %v", ErrPersistence, err)
	}
	return p.answerFrom(ctx, doc, question)
}

func (p *Pipeline) answerFrom(ctx context.Context, doc documents.Document, question string) (string, error) {
	if strings.TrimSpace(doc.ExtractedText) == "" {
		return "", ErrNoDocumentAvailable
	}
	answer, ok := p.enricher.Answer(ctx, doc.ExtractedText, question)
	telemetry.Info("ingest.answered", map[string]any{
		"document_id": doc.ID,
		"fallback":    !ok,
	})
	return answer, nil
}

// Chat sends a free-form prompt to the model. A failed or empty reply yields
// the chat fallback.
func (p *Pipeline) Chat(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	reply, ok := p.enricher.Chat(ctx, strings.TrimSpace(prompt))
	telemetry.Info("ingest.chat", map[string]any{"fallback": !ok})
	return reply, nil
}
