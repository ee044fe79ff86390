package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Postgres: metadata store and pgvector index.
	DatabaseURL string

	// OpenAI-compatible endpoints.
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	EmbeddingModel string

	// Embedding space. 1536 matches text-embedding-ada-002.
	EmbeddingDimension int

	// Chunking defaults (tokens, chars/4 heuristic).
	ChunkSize    int
	ChunkOverlap int

	// Retrieval defaults.
	SimilarityTopK      int
	ConfidenceThreshold float64

	// Synthesis.
	MaxAnswerTokens  int
	MaxContextTokens int
	SynthesisTimeout time.Duration
	EmbeddingTimeout time.Duration

	// Upload limits.
	MaxFileSizeMB     int
	MaxFilesPerUpload int

	// Bounded parallelism across documents in one upload batch.
	MaxConcurrentIngest int

	// Auth
	APIKey string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		DatabaseURL: envOr("DATABASE_URL", "postgres://localhost:5432/docqa"),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:    envOr("OPENAI_MODEL", "gpt-4"),
		EmbeddingModel: envOr("EMBEDDING_MODEL", "text-embedding-ada-002"),

		EmbeddingDimension: envInt("EMBEDDING_DIMENSION", 1536),

		ChunkSize:    envInt("CHUNK_SIZE", 1024),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 200),

		SimilarityTopK:      envInt("SIMILARITY_TOP_K", 5),
		ConfidenceThreshold: envFloat("CONFIDENCE_THRESHOLD", 0.7),

		MaxAnswerTokens:  envInt("MAX_ANSWER_TOKENS", 1500),
		MaxContextTokens: envInt("MAX_CONTEXT_TOKENS", 6000),
		SynthesisTimeout: envDuration("SYNTHESIS_TIMEOUT", 120*time.Second),
		EmbeddingTimeout: envDuration("EMBEDDING_TIMEOUT", 30*time.Second),

		MaxFileSizeMB:     envInt("MAX_FILE_SIZE_MB", 50),
		MaxFilesPerUpload: envInt("MAX_FILES_PER_UPLOAD", 100),

		MaxConcurrentIngest: envInt("MAX_CONCURRENT_INGEST", 4),

		APIKey: os.Getenv("DOCQA_API_KEY"),
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1024
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.SimilarityTopK <= 0 {
		cfg.SimilarityTopK = 5
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		cfg.ConfidenceThreshold = 0.7
	}
	if cfg.EmbeddingDimension <= 0 {
		cfg.EmbeddingDimension = 1536
	}
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 50
	}
	if cfg.MaxFilesPerUpload <= 0 {
		cfg.MaxFilesPerUpload = 100
	}
	if cfg.MaxConcurrentIngest <= 0 {
		cfg.MaxConcurrentIngest = 4
	}
	if cfg.MaxAnswerTokens <= 0 {
		cfg.MaxAnswerTokens = 1500
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = 6000
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = 120 * time.Second
	}
	if cfg.EmbeddingTimeout <= 0 {
		cfg.EmbeddingTimeout = 30 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCQA_API_KEY is required")
	}
	return nil
}

// MaxFileSizeBytes returns the per-file upload cap in bytes.
func (c Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
