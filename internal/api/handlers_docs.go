package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docqa/internal/store"
)

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	skip := 0
	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}

	docs, err := s.store.List(r.Context(), skip, limit)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

// handleDeleteDocument removes the document's vectors and then its
// metadata record. Vector deletion failure keeps the metadata so the
// document stays visible for a retry.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID, ok := s.docIDParam(w, r)
	if !ok {
		return
	}

	if _, err := s.store.GetByID(r.Context(), docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		jsonError(w, "lookup failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.engine.DeleteDocument(r.Context(), docID); err != nil {
		jsonError(w, "failed to delete vectors: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.Delete(r.Context(), docID); err != nil && !errors.Is(err, store.ErrNotFound) {
		jsonError(w, "failed to delete document record: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"document_id": docID,
		"deleted":     true,
	})
}

func (s *Server) handleDocumentStats(w http.ResponseWriter, r *http.Request) {
	docID, ok := s.docIDParam(w, r)
	if !ok {
		return
	}

	doc, err := s.store.GetByID(r.Context(), docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		jsonError(w, "lookup failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	stats, err := s.engine.DocumentStats(r.Context(), docID)
	if err != nil {
		jsonError(w, "failed to read index stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"document": doc,
		"stats":    stats,
	})
}

func (s *Server) docIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "docID"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid document id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
