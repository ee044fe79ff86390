package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/docqa/internal/chunker"
	"github.com/dgallion1/docqa/internal/config"
	"github.com/dgallion1/docqa/internal/llm"
	"github.com/dgallion1/docqa/internal/rag"
	"github.com/dgallion1/docqa/internal/store"
	"github.com/dgallion1/docqa/internal/vecindex"
)

// Engine is the subset of the RAG engine the handlers use.
type Engine interface {
	IndexDocument(ctx context.Context, documentID int64, chunks []chunker.Chunk) (int, error)
	Answer(ctx context.Context, query string, opts rag.QueryOptions) *rag.Answer
	Search(ctx context.Context, query string, topK int, documentIDs []int64) ([]vecindex.Result, error)
	DeleteDocument(ctx context.Context, documentID int64) error
	DocumentStats(ctx context.Context, documentID int64) (*rag.DocumentStats, error)
	IndexStats(ctx context.Context) (vecindex.Stats, error)
}

// Server is the HTTP API server for docqa.
type Server struct {
	router   chi.Router
	engine   Engine
	store    store.Store
	llm      *llm.Client
	validate *validator.Validate
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server. llmClient may be
// nil, in which case the LLM stats endpoint reports unavailable.
func NewServer(engine Engine, st store.Store, llmClient *llm.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		engine:   engine,
		store:    st,
		llm:      llmClient,
		validate: validator.New(),
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/upload", s.handleUpload)
		r.Post("/api/query", s.handleQuery)
		r.Get("/api/search", s.handleSearch)

		r.Get("/api/documents", s.handleListDocuments)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
		r.Get("/api/documents/{docID}/stats", s.handleDocumentStats)

		r.Get("/api/queries", s.handleRecentQueries)
		r.Get("/api/stats", s.handleIndexStats)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
