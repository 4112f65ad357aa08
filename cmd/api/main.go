package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"videoqa/internal/app"
	"videoqa/internal/config"
	"videoqa/internal/http"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about YouTube videos from their transcripts.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: VideoQA API
//   description: |
//     Question answering over YouTube video transcripts.
//     A video is processed once into a summary and a passage index; questions are then
//     answered from the summary or from the passages most similar to the question.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slog.SetDefault(app.NewLogger(cfg, os.Stdout))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	router := http.NewRouter(&http.Deps{
		Ingester:    a.Pipeline,
		Engine:      a.Engine,
		DB:          a.DB,
		VectorStore: a.VectorStore,
	})

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "provider", cfg.LLMProvider, "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
