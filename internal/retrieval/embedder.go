package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lexbotdev/lexbot/internal/gemini"
)

// Embedder wraps the embedding model and enforces the vector shape the
// collection was created with. A wrong-sized vector would silently corrupt
// similarity search, so the shape check is a hard error.
type Embedder struct {
	client *gemini.Client
	model  string
	dims   int
	logger *slog.Logger
}

func NewEmbedder(log *slog.Logger, client *gemini.Client, model string, dims int) *Embedder {
	if log == nil {
		log = slog.Default()
	}
	return &Embedder{
		client: client,
		model:  model,
		dims:   dims,
		logger: log.With(slog.String("service", "embedder")),
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.client.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(vec) != e.dims {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), e.dims)
	}
	return vec, nil
}

func (e *Embedder) Dims() int { return e.dims }
