package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/lexbotdev/lexbot/internal/chat"
	"github.com/lexbotdev/lexbot/internal/config"
	"github.com/lexbotdev/lexbot/internal/conversation"
	"github.com/lexbotdev/lexbot/internal/db"
	"github.com/lexbotdev/lexbot/internal/enrich"
	"github.com/lexbotdev/lexbot/internal/gemini"
	"github.com/lexbotdev/lexbot/internal/handlers"
	"github.com/lexbotdev/lexbot/internal/inbound"
	"github.com/lexbotdev/lexbot/internal/logger"
	"github.com/lexbotdev/lexbot/internal/media"
	"github.com/lexbotdev/lexbot/internal/pipeline"
	"github.com/lexbotdev/lexbot/internal/retrieval"
	"github.com/lexbotdev/lexbot/internal/server"
	"github.com/lexbotdev/lexbot/internal/speech"
	"github.com/lexbotdev/lexbot/internal/whatsapp"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideQdrantClient,
			provideGeminiClient,
			provideNormalizer,
			provideDownloader,
			provideTranscriber,
			provideDescriber,
			provideEmbedder,
			provideRetrievalStore,
			provideSearchTool,
			provideIngester,
			provideEngine,
			provideFormatter,
			provideSynthesizer,
			provideSender,
			conversation.NewService,
			providePipeline,
			handlers.NewPingHandler,
			provideWebhookHandler,
			provideDocumentsHandler,
			provideServer,
		),
		fx.Invoke(
			ensureCollection,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideQdrantClient(lc fx.Lifecycle, cfg config.Config) (*qdrant.Client, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return client.Close() }})
	return client, nil
}

func provideGeminiClient(log *slog.Logger, cfg config.Config) *gemini.Client {
	return gemini.NewClient(log, cfg.Gemini.APIKey, cfg.Gemini.BaseURL,
		time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second)
}

func provideNormalizer(log *slog.Logger, cfg config.Config) *inbound.Normalizer {
	return inbound.NewNormalizer(log, cfg.WhatsApp.CountryCode)
}

func provideDownloader(log *slog.Logger) *media.Downloader {
	return media.NewDownloader(log, 0)
}

func provideTranscriber(log *slog.Logger, gc *gemini.Client, cfg config.Config) *enrich.Transcriber {
	return enrich.NewTranscriber(log, gc, cfg.Gemini.TranscribeModels, cfg.OpenAI)
}

func provideDescriber(log *slog.Logger, gc *gemini.Client, cfg config.Config) *enrich.Describer {
	return enrich.NewDescriber(log, gc, cfg.Gemini.VisionModels)
}

func provideEmbedder(log *slog.Logger, gc *gemini.Client, cfg config.Config) *retrieval.Embedder {
	return retrieval.NewEmbedder(log, gc, cfg.Gemini.EmbeddingModel, cfg.Gemini.EmbeddingDims)
}

func provideRetrievalStore(log *slog.Logger, client *qdrant.Client, cfg config.Config) *retrieval.Store {
	return retrieval.NewStore(log, client, cfg.Qdrant.Collection, cfg.Gemini.EmbeddingDims)
}

func provideSearchTool(log *slog.Logger, emb *retrieval.Embedder, store *retrieval.Store) *retrieval.SearchTool {
	return retrieval.NewSearchTool(log, emb, store)
}

func provideIngester(log *slog.Logger, emb *retrieval.Embedder, store *retrieval.Store) *retrieval.Ingester {
	return retrieval.NewIngester(log, emb, store)
}

func provideEngine(log *slog.Logger, gc *gemini.Client, cfg config.Config, tool *retrieval.SearchTool) *chat.Engine {
	return chat.NewEngine(log, gc, cfg.Gemini.ChatModels,
		cfg.Assistant.SystemPrompt, cfg.Assistant.MaxToolRounds, tool)
}

func provideFormatter(log *slog.Logger, cfg config.Config) *speech.Formatter {
	return speech.NewFormatter(log, cfg.Audio.WordsPerMinute, cfg.Audio.MaxAudios)
}

func provideSynthesizer(log *slog.Logger, cfg config.Config) *speech.Synthesizer {
	return speech.NewSynthesizer(log, cfg.ElevenLabs.APIKey, cfg.ElevenLabs.BaseURL,
		cfg.ElevenLabs.VoiceID, cfg.ElevenLabs.ModelID,
		time.Duration(cfg.ElevenLabs.TimeoutSeconds)*time.Second)
}

func provideSender(log *slog.Logger, cfg config.Config) *whatsapp.Sender {
	return whatsapp.NewSender(log, cfg.WhatsApp.BaseURL, cfg.WhatsApp.InstanceID,
		cfg.WhatsApp.Token,
		time.Duration(cfg.WhatsApp.ChunkDelayMs)*time.Millisecond,
		time.Duration(cfg.WhatsApp.TimeoutSeconds)*time.Second)
}

func providePipeline(
	log *slog.Logger,
	cfg config.Config,
	norm *inbound.Normalizer,
	down *media.Downloader,
	trans *enrich.Transcriber,
	desc *enrich.Describer,
	store *conversation.Service,
	engine *chat.Engine,
	format *speech.Formatter,
	synth *speech.Synthesizer,
	sender *whatsapp.Sender,
) *pipeline.Pipeline {
	return pipeline.New(log, pipeline.Deps{
		Normalizer:   norm,
		Downloader:   down,
		Transcriber:  trans,
		Describer:    desc,
		Store:        store,
		Engine:       engine,
		Formatter:    format,
		Synthesizer:  synth,
		Sender:       sender,
		HistoryLimit: cfg.Assistant.HistoryLimit,
	})
}

func provideWebhookHandler(log *slog.Logger, p *pipeline.Pipeline) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, p)
}

func provideDocumentsHandler(log *slog.Logger, ing *retrieval.Ingester) *handlers.DocumentsHandler {
	return handlers.NewDocumentsHandler(log, ing)
}

func provideServer(cfg config.Config, log *slog.Logger, ping *handlers.PingHandler, webhook *handlers.WebhookHandler, docs *handlers.DocumentsHandler) *server.Server {
	return server.NewServer(cfg.Server.Addr, log, ping, webhook, docs)
}

func ensureCollection(lc fx.Lifecycle, store *retrieval.Store) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return store.EnsureCollection(ctx)
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					log.Error("server stopped", "error", err)
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
	})
}
