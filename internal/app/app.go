// Package app wires configuration into the ingestion pipeline and the question engine.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"videoqa/internal/config"
	"videoqa/internal/index"
	"videoqa/internal/indexer"
	"videoqa/internal/lease"
	"videoqa/internal/llm"
	"videoqa/internal/rag"
	"videoqa/internal/routing"
	"videoqa/internal/storage"
	"videoqa/internal/summary"
	"videoqa/internal/transcript"
	"videoqa/internal/vectorstore"
)

// App holds the wired components shared by the API server and the CLI.
type App struct {
	DB          *sql.DB
	VectorStore vectorstore.VectorStore
	Pipeline    *indexer.Pipeline
	Engine      rag.Engine

	closers []io.Closer
}

// NewLogger builds the process logger from configuration.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// New opens storage, connects to the configured providers and wires the pipelines.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db)

	if err := storage.Migrate(db); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	store, err := newVectorStore(cfg, db)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.VectorStore = store
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	slog.Info("Vector store ready", "backend", cfg.VectorBackend)

	generator, embedder := newProviders(cfg)
	slog.Info("Model provider configured",
		"provider", cfg.LLMProvider,
		"model", cfg.LLMModelName,
		"embedding_model", cfg.EmbeddingModelName,
		"dimension", cfg.EmbeddingDimension,
	)

	locker, err := newLocker(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if c, ok := locker.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	chunker, err := indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	videos := storage.NewVideoRepo(db)
	indexes := index.NewManager(embedder, store, storage.NewManifestRepo(db), index.Options{
		Backend:   cfg.VectorBackend,
		Dimension: cfg.EmbeddingDimension,
		BatchSize: cfg.EmbeddingBatchSize,
	})

	a.Pipeline = indexer.NewPipeline(
		transcript.NewYouTubeFetcher(transcript.YouTubeOptions{}),
		summary.NewSummarizer(generator, cfg.SummaryMaxChars),
		chunker,
		indexes,
		videos,
		locker,
		indexer.Options{
			Languages:      cfg.TranscriptLangs,
			EmbeddingModel: cfg.EmbeddingModelName,
		},
	)

	a.Engine = rag.NewEngine(
		routing.NewKeywordClassifier(),
		videos,
		rag.NewAssembler(indexes, cfg.RetrievalK),
		rag.NewSynthesizer(generator),
	)
	slog.Info("Pipelines initialized", "chunk_size", cfg.ChunkSize, "chunk_overlap", cfg.ChunkOverlap, "k", cfg.RetrievalK)

	return a, nil
}

// Close releases every resource opened by New, in reverse order.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func newVectorStore(cfg *config.Config, db *sql.DB) (vectorstore.VectorStore, error) {
	switch cfg.VectorBackend {
	case "qdrant":
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		return store, nil
	case "sqlite":
		return vectorstore.NewSQLiteStore(db), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

func newProviders(cfg *config.Config) (llm.Generator, llm.Embedder) {
	if cfg.LLMProvider == "openai" {
		p := llm.NewOpenAIProvider(llm.OpenAIConfig{
			BaseURL:        cfg.LLMBaseURL,
			APIKey:         cfg.LLMAPIKey,
			Model:          cfg.LLMModelName,
			EmbeddingModel: cfg.EmbeddingModelName,
			Temperature:    cfg.LLMTemperature,
			ExpectedSize:   cfg.EmbeddingDimension,
		})
		return p, p
	}

	generator := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.LLMTemperature)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDimension)
	return generator, embedder
}

func newLocker(ctx context.Context, cfg *config.Config) (lease.Locker, error) {
	if cfg.RedisAddr == "" {
		return lease.NewLocalLocker(), nil
	}
	client, err := lease.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	slog.Info("Redis ingestion lease enabled", "addr", cfg.RedisAddr)
	return &closingLocker{RedisLocker: lease.NewRedisLocker(client, lease.DefaultTTL), client: client}, nil
}

// closingLocker closes its Redis connection with the app.
type closingLocker struct {
	*lease.RedisLocker
	client io.Closer
}

func (l *closingLocker) Close() error {
	return l.client.Close()
}
