package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/dgallion1/docqa/internal/rag"
	"github.com/dgallion1/docqa/internal/store"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Prompt              string  `json:"prompt" validate:"required,min=3"`
	TopK                int     `json:"top_k" validate:"omitempty,min=1,max=50"`
	ConfidenceThreshold float64 `json:"confidence_threshold" validate:"omitempty,gt=0,lte=1"`
	DocumentIDs         []int64 `json:"document_ids" validate:"omitempty,dive,min=1"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		jsonError(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	ans := s.engine.Answer(r.Context(), req.Prompt, rag.QueryOptions{
		TopK:                req.TopK,
		ConfidenceThreshold: req.ConfidenceThreshold,
		DocumentIDs:         req.DocumentIDs,
	})

	s.recordQuery(r, ans)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ans)
}

// recordQuery persists the answer to query history. Best effort: a
// history write failure never fails the request.
func (s *Server) recordQuery(r *http.Request, ans *rag.Answer) {
	sources, err := json.Marshal(ans.Sources)
	if err != nil {
		sources = nil
	}
	rec := &store.QueryRecord{
		SessionID:      uuid.New(),
		Question:       ans.Query,
		Answer:         ans.Text,
		Confidence:     ans.Confidence,
		Sources:        sources,
		ResponseTimeMs: ans.ResponseTimeMs,
	}
	if err := s.store.CreateQueryRecord(r.Context(), rec); err != nil {
		s.log.Warn("query history write failed", "error", err)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		jsonError(w, "query parameter is required", http.StatusBadRequest)
		return
	}
	topK := queryInt(r, "top_k", s.cfg.SimilarityTopK)

	results, err := s.engine.Search(r.Context(), query, topK, nil)
	if err != nil {
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleRecentQueries(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	recs, err := s.store.RecentQueries(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to load query history: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"queries": recs})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
