package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const defaultSearchLimit = 3

type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type searcher interface {
	Nearest(ctx context.Context, vector []float32, k int) ([]Document, error)
}

// SearchTool exposes the document knowledge base to the model as a callable
// function.
type SearchTool struct {
	embedder embedder
	store    searcher
	limit    int
	logger   *slog.Logger
}

func NewSearchTool(log *slog.Logger, emb embedder, store searcher) *SearchTool {
	if log == nil {
		log = slog.Default()
	}
	return &SearchTool{
		embedder: emb,
		store:    store,
		limit:    defaultSearchLimit,
		logger:   log.With(slog.String("service", "document_search")),
	}
}

func (t *SearchTool) Name() string { return "document_search" }

func (t *SearchTool) Description() string {
	return "Busca documentos relevantes na base de conhecimento jurídica. Use esta ferramenta sempre que o usuário fizer uma pergunta sobre leis, prazos, contratos ou procedimentos."
}

func (t *SearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Texto da consulta para busca semântica nos documentos",
			},
		},
		"required": []string{"query"},
	}
}

// Call embeds the query, finds the nearest documents and formats them for the
// model. An empty result set yields a sentinel line rather than an error so
// the model can tell the user nothing was found.
func (t *SearchTool) Call(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("document_search: missing query argument")
	}

	vec, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("document_search: %w", err)
	}

	docs, err := t.store.Nearest(ctx, vec, t.limit)
	if err != nil {
		return "", fmt.Errorf("document_search: %w", err)
	}
	if len(docs) == 0 {
		return "Nenhum documento relevante encontrado para a consulta: " + query, nil
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, fmt.Sprintf("Fonte: %s | Conteúdo: %s...", doc.Title, truncateRunes(doc.Content, 500)))
	}
	t.logger.Debug("documents retrieved", "query", query, "count", len(docs))
	return strings.Join(parts, "\n\n"), nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
