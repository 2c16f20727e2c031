package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/spf13/cobra"

	"github.com/lexbotdev/lexbot/internal/config"
	"github.com/lexbotdev/lexbot/internal/gemini"
	"github.com/lexbotdev/lexbot/internal/logger"
	"github.com/lexbotdev/lexbot/internal/retrieval"
)

func newIngestCommand() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Index text files into the document knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), args, title)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "document title (defaults to the file name)")
	return cmd
}

func runIngest(ctx context.Context, paths []string, title string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.L

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer client.Close()

	gc := gemini.NewClient(log, cfg.Gemini.APIKey, cfg.Gemini.BaseURL,
		time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second)
	embedder := retrieval.NewEmbedder(log, gc, cfg.Gemini.EmbeddingModel, cfg.Gemini.EmbeddingDims)
	store := retrieval.NewStore(log, client, cfg.Qdrant.Collection, cfg.Gemini.EmbeddingDims)
	ingester := retrieval.NewIngester(log, embedder, store)

	if err := store.EnsureCollection(ctx); err != nil {
		return err
	}

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		docTitle := title
		if docTitle == "" || len(paths) > 1 {
			docTitle = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		id, err := ingester.Ingest(ctx, docTitle, string(raw))
		if err != nil {
			return err
		}
		fmt.Printf("indexed %s as %s\n", path, id)
	}
	return nil
}
