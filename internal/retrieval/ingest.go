package retrieval

import (
	"context"
	"fmt"
	"log/slog"
)

type inserter interface {
	Insert(ctx context.Context, doc Document, vector []float32) (string, error)
}

// Ingester indexes documents into the knowledge base.
type Ingester struct {
	embedder embedder
	store    inserter
	logger   *slog.Logger
}

func NewIngester(log *slog.Logger, emb embedder, store inserter) *Ingester {
	if log == nil {
		log = slog.Default()
	}
	return &Ingester{
		embedder: emb,
		store:    store,
		logger:   log.With(slog.String("service", "ingest")),
	}
}

// Ingest embeds the document content and stores it, returning the new
// document ID.
func (i *Ingester) Ingest(ctx context.Context, title, content string) (string, error) {
	vec, err := i.embedder.Embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("ingest %q: %w", title, err)
	}

	id, err := i.store.Insert(ctx, Document{Title: title, Content: content}, vec)
	if err != nil {
		return "", fmt.Errorf("ingest %q: %w", title, err)
	}
	i.logger.Info("document indexed", "id", id, "title", title)
	return id, nil
}
