// Package langchain adapts langchaingo's OpenAI-compatible client to the llm interfaces.
package langchain

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docflow-backend/internal/llm"
	"docflow-backend/internal/shared/telemetry"
)

// Config selects the endpoint and models.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

func (c Config) token() string {
	// Local OpenAI-compatible servers ignore the token but langchaingo requires one.
	if strings.TrimSpace(c.APIKey) == "" {
		return "none"
	}
	return c.APIKey
}

func (c Config) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Completer implements llm.Completer with langchaingo.
type Completer struct {
	client *openai.LLM
	model  string
}

// NewCompleter builds a chat completer.
func NewCompleter(cfg Config) (*Completer, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required")
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.token()),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(cfg.httpClient()),
	)
	if err != nil {
		return nil, fmt.Errorf("langchain client: %w", err)
	}
	return &Completer{client: client, model: cfg.Model}, nil
}

// Complete sends the system and user messages and returns the first choice.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	content := make([]llms.MessageContent, 0, 2)
	if strings.TrimSpace(system) != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, user))

	start := time.Now()
	resp, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		return "", err
	}
	telemetry.Info("llm.response", map[string]any{
		"model":       c.model,
		"provider":    "langchain",
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyCompletion
	}
	out := strings.TrimSpace(resp.Choices[0].Content)
	if out == "" {
		return "", llm.ErrEmptyCompletion
	}
	return out, nil
}

// Embedder implements llm.Embedder with langchaingo embeddings.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
}

// NewEmbedder builds an embedder for cfg.EmbeddingModel.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if strings.TrimSpace(cfg.EmbeddingModel) == "" {
		return nil, fmt.Errorf("EMBEDDING_MODEL is required")
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.token()),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
		openai.WithHTTPClient(cfg.httpClient()),
	)
	if err != nil {
		return nil, fmt.Errorf("langchain embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return &Embedder{embedder: embedder, model: cfg.EmbeddingModel}, nil
}

// Model returns the embedding model name stored next to each vector.
func (e *Embedder) Model() string { return e.model }

// EmbedText embeds a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}
	return vectors[0], nil
}

var (
	_ llm.Completer = (*Completer)(nil)
	_ llm.Embedder  = (*Embedder)(nil)
)
