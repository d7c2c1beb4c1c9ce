package llm

import (
	"context"
	"errors"
)

// Completer sends one system instruction plus one user message to a chat model
// and returns the raw text of the first choice.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// ErrEmptyCompletion is returned when the model answered with no content.
var ErrEmptyCompletion = errors.New("empty completion")

// PlaceholderClient is used when no provider is configured. Every call fails,
// so enrichment falls back to its defaults.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, system, user string) (string, error) {
	return "", ErrNotImplemented
}

// EmbedText returns ErrNotImplemented.
func (PlaceholderClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrNotImplemented
}

var (
	_ Completer = PlaceholderClient{}
	_ Embedder  = PlaceholderClient{}
)
