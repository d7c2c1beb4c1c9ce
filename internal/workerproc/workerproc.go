package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/queue"
	"docflow-backend/internal/shared/telemetry"
)

// Processor indexes one stored document.
type Processor interface {
	IndexDocument(ctx context.Context, userID, documentID string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrUnsupportedType indicates a message this worker does not handle.
type ErrUnsupportedType struct {
	Meta MessageMeta
	Type string
}

func (e ErrUnsupportedType) Error() string { return fmt.Sprintf("unsupported message type %q", e.Type) }

// ErrMissingDocumentID indicates a message without a document or user id.
type ErrMissingDocumentID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingDocumentID) Error() string { return "missing document id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	DocumentID string
	RequestID  string
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process document"
	}
	return "process document: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether retrying err can never succeed.
func Unrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		typ     ErrUnsupportedType
		missing ErrMissingDocumentID
	)
	switch {
	case errors.As(err, &empty), errors.As(err, &decode), errors.As(err, &typ), errors.As(err, &missing):
		return true
	case errors.Is(err, documents.ErrNotFound):
		return true
	}
	return false
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Type != "" && msg.Type != queue.TypeDocumentIngested {
		return msg, meta, ErrUnsupportedType{Meta: meta, Type: msg.Type}
	}
	if strings.TrimSpace(msg.DocumentID) == "" || strings.TrimSpace(msg.UserID) == "" {
		return msg, meta, ErrMissingDocumentID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, proc Processor, body string) error {
	if proc == nil {
		return errors.New("index processor not configured")
	}
	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}
	return Process(ctx, proc, msg)
}

// Process runs proc for an already parsed message.
func Process(ctx context.Context, proc Processor, msg queue.Message) error {
	if proc == nil {
		return errors.New("index processor not configured")
	}
	if strings.TrimSpace(msg.DocumentID) == "" {
		return ErrMissingDocumentID{RequestID: msg.RequestID}
	}
	ctx = telemetry.WithRequestID(ctx, msg.RequestID)
	if err := proc.IndexDocument(ctx, msg.UserID, msg.DocumentID); err != nil {
		return ErrProcess{DocumentID: msg.DocumentID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
