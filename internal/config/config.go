package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMProvider        string
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	LLMTemperature     float32
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingDimension int
	EmbeddingBatchSize int
	DataDir            string
	DBPath             string
	VectorBackend      string
	QdrantURL          string
	ChunkSize          int
	ChunkOverlap       int
	SummaryMaxChars    int
	RetrievalK         int
	TranscriptLangs    []string
	RedisAddr          string
	APIPort            string
	LogLevel           slog.Level
	LogFormat          string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent, it is loaded first;
// environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", "llamacpp")),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "gemini-2.5-flash"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "gemini-embedding-001"),
		DataDir:            getEnv("DATA_DIR", "./vectorstores"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", "sqlite")),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
	cfg.DBPath = filepath.Join(cfg.DataDir, "videoqa.db")

	switch cfg.LLMProvider {
	case "llamacpp", "openai":
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be one of llamacpp, openai: got %q", cfg.LLMProvider)
	}

	switch cfg.VectorBackend {
	case "sqlite", "qdrant":
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be one of sqlite, qdrant: got %q", cfg.VectorBackend)
	}

	temperature, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.2"), 32)
	if err != nil {
		return nil, fmt.Errorf("LLM_TEMPERATURE must be a valid number: %w", err)
	}
	cfg.LLMTemperature = float32(temperature)

	// EMBEDDING_DIMENSION must match the output size of the embeddings model.
	// Indexes built with one dimension cannot be searched with another.
	dimStr := getEnv("EMBEDDING_DIMENSION", "")
	if dimStr == "" {
		return nil, fmt.Errorf("EMBEDDING_DIMENSION is required")
	}
	if cfg.EmbeddingDimension, err = positiveInt("EMBEDDING_DIMENSION", dimStr); err != nil {
		return nil, err
	}

	if cfg.EmbeddingBatchSize, err = positiveInt("EMBEDDING_BATCH_SIZE", getEnv("EMBEDDING_BATCH_SIZE", "32")); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = positiveInt("CHUNK_SIZE", getEnv("CHUNK_SIZE", "250")); err != nil {
		return nil, err
	}
	cfg.ChunkOverlap, err = strconv.Atoi(getEnv("CHUNK_OVERLAP", "40"))
	if err != nil {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be a valid integer: %w", err)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE): got %d with CHUNK_SIZE %d", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if cfg.SummaryMaxChars, err = positiveInt("SUMMARY_MAX_CHARS", getEnv("SUMMARY_MAX_CHARS", "20000")); err != nil {
		return nil, err
	}
	if cfg.RetrievalK, err = positiveInt("RETRIEVAL_K", getEnv("RETRIEVAL_K", "4")); err != nil {
		return nil, err
	}

	for _, lang := range strings.Split(getEnv("TRANSCRIPT_LANGUAGES", "en"), ",") {
		if lang = strings.TrimSpace(lang); lang != "" {
			cfg.TranscriptLangs = append(cfg.TranscriptLangs, lang)
		}
	}
	if len(cfg.TranscriptLangs) == 0 {
		return nil, fmt.Errorf("TRANSCRIPT_LANGUAGES must name at least one language")
	}

	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json: got %q", cfg.LogFormat)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// positiveInt parses value as an integer greater than zero.
func positiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return n, nil
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error: %w", err)
	}
	return level, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
