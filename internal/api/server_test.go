package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgallion1/docqa/internal/chunker"
	"github.com/dgallion1/docqa/internal/config"
	"github.com/dgallion1/docqa/internal/rag"
	"github.com/dgallion1/docqa/internal/store"
	"github.com/dgallion1/docqa/internal/vecindex"
)

const testAPIKey = "test-key"

type stubEngine struct {
	indexErr    error
	indexedDocs []int64
	deletedDocs []int64
	deleteErr   error
	answer      *rag.Answer
	results     []vecindex.Result
}

func (e *stubEngine) IndexDocument(_ context.Context, documentID int64, chunks []chunker.Chunk) (int, error) {
	if e.indexErr != nil {
		return 0, e.indexErr
	}
	e.indexedDocs = append(e.indexedDocs, documentID)
	return len(chunks), nil
}

func (e *stubEngine) Answer(_ context.Context, query string, _ rag.QueryOptions) *rag.Answer {
	if e.answer != nil {
		ans := *e.answer
		ans.Query = query
		return &ans
	}
	return &rag.Answer{Query: query, Text: "stub answer", Success: true}
}

func (e *stubEngine) Search(_ context.Context, _ string, _ int, _ []int64) ([]vecindex.Result, error) {
	return e.results, nil
}

func (e *stubEngine) DeleteDocument(_ context.Context, documentID int64) error {
	if e.deleteErr != nil {
		return e.deleteErr
	}
	e.deletedDocs = append(e.deletedDocs, documentID)
	return nil
}

func (e *stubEngine) DocumentStats(_ context.Context, documentID int64) (*rag.DocumentStats, error) {
	return &rag.DocumentStats{DocumentID: documentID, ChunkCount: 3}, nil
}

func (e *stubEngine) IndexStats(_ context.Context) (vecindex.Stats, error) {
	return vecindex.Stats{TotalVectorCount: 3, Dimension: 1536}, nil
}

func testConfig() config.Config {
	return config.Config{
		APIKey:              testAPIKey,
		ChunkSize:           1024,
		ChunkOverlap:        200,
		SimilarityTopK:      5,
		ConfidenceThreshold: 0.7,
		MaxFileSizeMB:       1,
		MaxFilesPerUpload:   10,
		MaxConcurrentIngest: 2,
	}
}

func newTestServer(engine Engine, st store.Store) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(engine, st, nil, log, testConfig())
}

func doRequest(s *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return buf, mw.FormDataContentType()
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(&stubEngine{}, store.NewMemory())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(&stubEngine{}, store.NewMemory())
	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestUploadRequiresFiles(t *testing.T) {
	s := newTestServer(&stubEngine{}, store.NewMemory())
	body, ct := multipartBody(t, nil)
	rec := doRequest(s, http.MethodPost, "/api/upload", body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadIndexesTextFile(t *testing.T) {
	engine := &stubEngine{}
	st := store.NewMemory()
	s := newTestServer(engine, st)

	body, ct := multipartBody(t, map[string]string{"notes.txt": "Some meaningful text to index."})
	rec := doRequest(s, http.MethodPost, "/api/upload", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Uploaded []uploadResult  `json:"uploaded"`
		Errors   []uploadFailure `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Uploaded) != 1 || len(resp.Errors) != 0 {
		t.Fatalf("uploaded=%d errors=%d", len(resp.Uploaded), len(resp.Errors))
	}
	if resp.Uploaded[0].Status != statusIndexed {
		t.Errorf("status = %q", resp.Uploaded[0].Status)
	}
	if len(engine.indexedDocs) != 1 {
		t.Errorf("engine indexed %d docs, want 1", len(engine.indexedDocs))
	}

	doc, err := st.GetByID(context.Background(), resp.Uploaded[0].DocumentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.ProcessedAt == nil {
		t.Error("expected processed_at stamped after indexing")
	}
}

func TestUploadDuplicateReturnsExistingRecord(t *testing.T) {
	engine := &stubEngine{}
	st := store.NewMemory()
	s := newTestServer(engine, st)

	content := map[string]string{"notes.txt": "Same content both times."}
	body, ct := multipartBody(t, content)
	if rec := doRequest(s, http.MethodPost, "/api/upload", body, ct); rec.Code != http.StatusOK {
		t.Fatalf("first upload status = %d", rec.Code)
	}

	body, ct = multipartBody(t, map[string]string{"renamed.txt": "Same content both times."})
	rec := doRequest(s, http.MethodPost, "/api/upload", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("second upload status = %d", rec.Code)
	}

	var resp struct {
		Uploaded []uploadResult `json:"uploaded"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Uploaded[0].Status != statusDuplicate {
		t.Errorf("status = %q, want duplicate", resp.Uploaded[0].Status)
	}
	if len(engine.indexedDocs) != 1 {
		t.Errorf("engine indexed %d docs, want 1 (duplicate skips indexing)", len(engine.indexedDocs))
	}
}

func TestUploadPartialFailureIs207(t *testing.T) {
	s := newTestServer(&stubEngine{}, store.NewMemory())

	body, ct := multipartBody(t, map[string]string{
		"good.txt": "Readable content.",
		"bad.xyz":  "unsupported",
	})
	rec := doRequest(s, http.MethodPost, "/api/upload", body, ct)
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207", rec.Code)
	}

	var resp struct {
		Uploaded []uploadResult  `json:"uploaded"`
		Errors   []uploadFailure `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Uploaded) != 1 || len(resp.Errors) != 1 {
		t.Fatalf("uploaded=%d errors=%d, want 1 each", len(resp.Uploaded), len(resp.Errors))
	}
	if !strings.Contains(resp.Errors[0].Error, "unsupported") {
		t.Errorf("error = %q", resp.Errors[0].Error)
	}
}

func TestUploadIndexFailureRollsBackMetadata(t *testing.T) {
	engine := &stubEngine{indexErr: errors.New("index unavailable")}
	st := store.NewMemory()
	s := newTestServer(engine, st)

	body, ct := multipartBody(t, map[string]string{"notes.txt": "Some content to index."})
	rec := doRequest(s, http.MethodPost, "/api/upload", body, ct)
	if rec.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207", rec.Code)
	}

	docs, err := st.List(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("found %d documents after rollback, want 0", len(docs))
	}
}

func TestQueryValidation(t *testing.T) {
	s := newTestServer(&stubEngine{}, store.NewMemory())

	for name, body := range map[string]string{
		"empty prompt":  `{"prompt":""}`,
		"short prompt":  `{"prompt":"hi"}`,
		"bad threshold": `{"prompt":"a real question","confidence_threshold":1.5}`,
		"bad top_k":     `{"prompt":"a real question","top_k":500}`,
		"not json":      `nope`,
	} {
		rec := doRequest(s, http.MethodPost, "/api/query", strings.NewReader(body), "application/json")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestQueryReturnsAnswerAndRecordsHistory(t *testing.T) {
	engine := &stubEngine{answer: &rag.Answer{
		Text:       "42 [Source 1]",
		Confidence: 0.9,
		Sources:    []rag.Source{{SourceID: 1, DocumentID: 1, ChunkIndex: 0, Text: "ctx", Score: 0.9}},
		Success:    true,
	}}
	st := store.NewMemory()
	s := newTestServer(engine, st)

	rec := doRequest(s, http.MethodPost, "/api/query",
		strings.NewReader(`{"prompt":"what is the answer?"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var ans rag.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &ans); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ans.Text != "42 [Source 1]" || !ans.Success {
		t.Errorf("answer = %+v", ans)
	}

	history, err := st.RecentQueries(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentQueries: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d entries, want 1", len(history))
	}
	if history[0].Question != "what is the answer?" {
		t.Errorf("question = %q", history[0].Question)
	}
	if history[0].SessionID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("expected generated session id")
	}
}

func TestDeleteDocument(t *testing.T) {
	engine := &stubEngine{}
	st := store.NewMemory()
	s := newTestServer(engine, st)

	doc := &store.Document{Name: "doc", ContentHash: "h1"}
	if err := st.CreateDocument(context.Background(), doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	rec := doRequest(s, http.MethodDelete, "/api/documents/999", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", rec.Code)
	}

	rec = doRequest(s, http.MethodDelete, "/api/documents/1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(engine.deletedDocs) != 1 || engine.deletedDocs[0] != doc.ID {
		t.Errorf("deleted = %v, want [%d]", engine.deletedDocs, doc.ID)
	}
	if _, err := st.GetByID(context.Background(), doc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("metadata still present after delete: %v", err)
	}
}

func TestDeleteDocumentKeepsMetadataWhenVectorDeleteFails(t *testing.T) {
	engine := &stubEngine{deleteErr: errors.New("index down")}
	st := store.NewMemory()
	s := newTestServer(engine, st)

	doc := &store.Document{Name: "doc", ContentHash: "h1"}
	if err := st.CreateDocument(context.Background(), doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	rec := doRequest(s, http.MethodDelete, "/api/documents/1", nil, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if _, err := st.GetByID(context.Background(), doc.ID); err != nil {
		t.Errorf("metadata must survive a failed vector delete: %v", err)
	}
}

func TestDocumentStats(t *testing.T) {
	st := store.NewMemory()
	s := newTestServer(&stubEngine{}, st)

	rec := doRequest(s, http.MethodGet, "/api/documents/5/stats", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", rec.Code)
	}

	doc := &store.Document{Name: "doc", ContentHash: "h1"}
	if err := st.CreateDocument(context.Background(), doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	rec = doRequest(s, http.MethodGet, "/api/documents/1/stats", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"chunk_count":3`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	s := newTestServer(&stubEngine{}, store.NewMemory())
	rec := doRequest(s, http.MethodGet, "/api/search", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchReturnsResults(t *testing.T) {
	engine := &stubEngine{results: []vecindex.Result{
		{ID: "doc_1_chunk_0", Score: 0.42, Metadata: vecindex.Metadata{DocumentID: 1, Text: "hit"}},
	}}
	s := newTestServer(engine, store.NewMemory())

	rec := doRequest(s, http.MethodGet, "/api/search?query=hit", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
