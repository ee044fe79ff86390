package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dgallion1/docqa/internal/api"
	"github.com/dgallion1/docqa/internal/config"
	"github.com/dgallion1/docqa/internal/embed"
	"github.com/dgallion1/docqa/internal/llm"
	"github.com/dgallion1/docqa/internal/rag"
	"github.com/dgallion1/docqa/internal/store"
	"github.com/dgallion1/docqa/internal/vecindex/pgvector"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres backs both the metadata store and the vector index.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st, err := store.NewPostgres(ctx, pool)
	if err != nil {
		log.Error("metadata store init failed", "error", err)
		os.Exit(1)
	}

	index, err := pgvector.New(ctx, cfg.DatabaseURL, cfg.EmbeddingDimension)
	if err != nil {
		log.Error("vector index init failed", "error", err)
		os.Exit(1)
	}
	defer index.Close()

	embedder := embed.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingTimeout)
	model := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.SynthesisTimeout)

	engine := rag.NewEngine(embedder, model, index, rag.EngineConfig{
		ModelName:           cfg.OpenAIModel,
		TopK:                cfg.SimilarityTopK,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxAnswerTokens:     cfg.MaxAnswerTokens,
		MaxContextTokens:    cfg.MaxContextTokens,
		Dimension:           cfg.EmbeddingDimension,
	}, log)

	srv := api.NewServer(engine, st, model, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		model.Close()
	}()

	log.Info("starting docqa", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
