package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgallion1/docqa/internal/chunker"
	"github.com/dgallion1/docqa/internal/parser"
	"github.com/dgallion1/docqa/internal/store"
)

type uploadResult struct {
	Filename   string `json:"filename"`
	DocumentID int64  `json:"document_id"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	TotalPages int    `json:"total_pages,omitempty"`
}

type uploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

const (
	statusIndexed   = "indexed"
	statusDuplicate = "duplicate"
)

// handleUpload ingests a multipart batch of documents. Files are
// processed with bounded parallelism; per-file failures are collected
// rather than aborting the batch, and any failure turns the response
// into a 207 multi-status.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	perFile := s.cfg.MaxFileSizeBytes()
	r.Body = http.MaxBytesReader(w, r.Body, perFile*int64(s.cfg.MaxFilesPerUpload)+16*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	if len(files) > s.cfg.MaxFilesPerUpload {
		jsonError(w, fmt.Sprintf("too many files: %d (max %d)", len(files), s.cfg.MaxFilesPerUpload), http.StatusBadRequest)
		return
	}

	uploaded := make([]*uploadResult, len(files))
	failed := make([]*uploadFailure, len(files))

	sem := make(chan struct{}, s.cfg.MaxConcurrentIngest)
	var wg sync.WaitGroup
	for i, fh := range files {
		wg.Add(1)
		go func(i int, fh *multipart.FileHeader) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := s.ingestFile(r.Context(), fh)
			if err != nil {
				failed[i] = &uploadFailure{Filename: sanitizeFilename(fh.Filename), Error: err.Error()}
				return
			}
			uploaded[i] = res
		}(i, fh)
	}
	wg.Wait()

	resp := map[string]any{
		"uploaded": compact(uploaded),
		"errors":   compact(failed),
	}
	status := http.StatusOK
	if len(compact(failed)) > 0 {
		status = http.StatusMultiStatus
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// ingestFile runs one document through validate, extract, persist,
// chunk and index. On indexing failure the freshly created metadata
// record is rolled back so no document exists without vectors.
func (s *Server) ingestFile(ctx context.Context, fh *multipart.FileHeader) (*uploadResult, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	maxBytes := s.cfg.MaxFileSizeBytes()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("file exceeds max size (%d MB)", s.cfg.MaxFileSizeMB)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	// Duplicate content short-circuits to the existing record.
	if existing, err := s.store.GetByHash(ctx, hash); err == nil {
		return &uploadResult{
			Filename:   filename,
			DocumentID: existing.ID,
			Status:     statusDuplicate,
			TotalPages: existing.TotalPages,
		}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		if v := parser.ValidatePDF(data, maxBytes); !v.Valid {
			return nil, fmt.Errorf("invalid pdf: %s", v.Error)
		}
	}

	ext, err := parser.ForFile(filename)
	if err != nil {
		return nil, err
	}
	extraction, err := ext.Extract(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(extraction.FullText) == "" {
		return nil, fmt.Errorf("no extractable text")
	}

	name := extraction.Meta.Title
	if name == "" {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	doc := &store.Document{
		Name:             name,
		OriginalFilename: filename,
		FileSize:         int64(len(data)),
		ContentHash:      hash,
		TotalPages:       extraction.TotalPages,
		Author:           extraction.Meta.Author,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	chunks := chunker.Split(extraction.FullText, chunker.Config{
		ChunkSize:    s.cfg.ChunkSize,
		ChunkOverlap: s.cfg.ChunkOverlap,
	})
	if len(chunks) == 0 {
		s.rollbackDocument(ctx, doc.ID)
		return nil, fmt.Errorf("no chunks produced")
	}

	n, err := s.engine.IndexDocument(ctx, doc.ID, chunks)
	if err != nil {
		s.rollbackDocument(ctx, doc.ID)
		return nil, fmt.Errorf("index document: %w", err)
	}

	if err := s.store.MarkProcessed(ctx, doc.ID); err != nil {
		s.log.Warn("mark processed failed", "document_id", doc.ID, "error", err)
	}

	return &uploadResult{
		Filename:   filename,
		DocumentID: doc.ID,
		Status:     statusIndexed,
		ChunkCount: n,
		TotalPages: extraction.TotalPages,
	}, nil
}

// rollbackDocument removes a metadata record whose vectors never made
// it into the index.
func (s *Server) rollbackDocument(ctx context.Context, id int64) {
	if err := s.store.Delete(ctx, id); err != nil {
		s.log.Error("rollback of document record failed", "document_id", id, "error", err)
	}
}

func compact[T any](ptrs []*T) []T {
	out := make([]T, 0, len(ptrs))
	for _, p := range ptrs {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
