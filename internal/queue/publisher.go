package queue

import (
	"context"
	"errors"
	"time"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/telemetry"
)

// Client delivers one message to the queue backend; SQSClient in production.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Publisher announces ingested documents on a queue.
type Publisher struct {
	Client Client
	now    func() time.Time
}

// NewPublisher wraps client.
func NewPublisher(client Client) *Publisher {
	return &Publisher{Client: client, now: time.Now}
}

// DocumentIngested sends a document.ingested message for doc.
func (p *Publisher) DocumentIngested(ctx context.Context, doc documents.Document) error {
	if p == nil || p.Client == nil {
		return errors.New("queue publisher not configured")
	}
	msg := Message{
		Type:       TypeDocumentIngested,
		DocumentID: doc.ID,
		UserID:     doc.UserID,
		RequestID:  telemetry.RequestID(ctx),
		EnqueuedAt: p.now().UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
	if err := p.Client.Send(ctx, msg); err != nil {
		return err
	}
	telemetry.Info("queue.published", map[string]any{
		"type":        msg.Type,
		"document_id": msg.DocumentID,
		"request_id":  msg.RequestID,
	})
	return nil
}
