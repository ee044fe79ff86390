package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store used in tests and local runs without
// Postgres.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	docs    map[int64]Document
	queries []QueryRecord
}

func NewMemory() *Memory {
	return &Memory{nextID: 1, docs: make(map[int64]Document)}
}

func (m *Memory) CreateDocument(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Same uniqueness guarantee as the content_hash constraint in the
	// Postgres schema.
	for _, d := range m.docs {
		if d.ContentHash == doc.ContentHash {
			return fmt.Errorf("create document: content hash %s already exists", doc.ContentHash)
		}
	}
	doc.ID = m.nextID
	m.nextID++
	doc.UploadDate = time.Now().UTC()
	m.docs[doc.ID] = *doc
	return nil
}

func (m *Memory) GetByHash(_ context.Context, hash string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ContentHash == hash {
			d := d
			return &d, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetByID(_ context.Context, id int64) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *Memory) List(_ context.Context, skip, limit int) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadDate.Equal(docs[j].UploadDate) {
			return docs[i].UploadDate.After(docs[j].UploadDate)
		}
		return docs[i].ID > docs[j].ID
	})
	if skip >= len(docs) {
		return nil, nil
	}
	docs = docs[skip:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs, nil
}

func (m *Memory) MarkProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	d.ProcessedAt = &now
	m.docs[id] = d
	return nil
}

func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *Memory) CreateQueryRecord(_ context.Context, rec *QueryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.queries) + 1)
	rec.CreatedAt = time.Now().UTC()
	m.queries = append(m.queries, *rec)
	return nil
}

func (m *Memory) RecentQueries(_ context.Context, limit int) ([]QueryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []QueryRecord
	for i := len(m.queries) - 1; i >= 0 && (limit <= 0 || len(recs) < limit); i-- {
		recs = append(recs, m.queries[i])
	}
	return recs, nil
}
