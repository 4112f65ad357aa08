package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"videoqa/internal/config"
	"videoqa/internal/domain"
	"videoqa/internal/rag"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		LLMProvider:        "llamacpp",
		LLMBaseURL:         "http://127.0.0.1:1",
		LLMModelName:       "test-model",
		LLMAPIKey:          "key",
		LLMTemperature:     0.2,
		EmbeddingBaseURL:   "http://127.0.0.1:1",
		EmbeddingModelName: "test-embed",
		EmbeddingDimension: 8,
		EmbeddingBatchSize: 4,
		DataDir:            dir,
		DBPath:             filepath.Join(dir, "videoqa.db"),
		VectorBackend:      "sqlite",
		ChunkSize:          250,
		ChunkOverlap:       40,
		SummaryMaxChars:    20000,
		RetrievalK:         4,
		TranscriptLangs:    []string{"en"},
		LogLevel:           slog.LevelInfo,
		LogFormat:          "text",
	}
}

func TestNew_SQLite(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	if a.DB == nil || a.VectorStore == nil || a.Pipeline == nil || a.Engine == nil {
		t.Fatalf("New() = %+v, want every component wired", a)
	}
	if err := a.DB.PingContext(context.Background()); err != nil {
		t.Errorf("PingContext() error = %v", err)
	}

	// Nothing is processed yet, so no provider is contacted.
	_, err = a.Engine.Ask(context.Background(), rag.AskRequest{VideoID: "vid1", Question: "summary"})
	if !errors.Is(err, domain.ErrIndexNotFound) {
		t.Errorf("Ask() error = %v, want ErrIndexNotFound", err)
	}
}

func TestNew_InvalidChunking(t *testing.T) {
	cfg := testConfig(t)
	cfg.ChunkOverlap = cfg.ChunkSize

	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("New() expected error for overlap >= size")
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.VectorBackend = "faiss"

	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("New() expected error for unknown backend")
	}
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogFormat = "json"
	cfg.LogLevel = slog.LevelWarn

	var buf bytes.Buffer
	logger := NewLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("NewLogger() should respect the configured level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("NewLogger() output = %q, want JSON", out)
	}
}
