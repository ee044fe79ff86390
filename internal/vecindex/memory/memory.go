// Package memory is a brute-force cosine-similarity index held in
// process memory. It backs tests and the database-free local mode.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dgallion1/docqa/internal/vecindex"
)

type Index struct {
	mu      sync.RWMutex
	records map[string]vecindex.Record
}

func New() *Index {
	return &Index{records: make(map[string]vecindex.Record)}
}

func (ix *Index) Upsert(ctx context.Context, records []vecindex.Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record with empty id")
		}
		if len(r.Vector) == 0 {
			return fmt.Errorf("record %s has empty vector", r.ID)
		}
		ix.records[r.ID] = r
	}
	return nil
}

func (ix *Index) Query(ctx context.Context, vector []float32, topK int, filter *vecindex.Filter) ([]vecindex.Result, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if topK <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results := make([]vecindex.Result, 0, len(ix.records))
	for _, r := range ix.records {
		if !filter.Matches(r.Metadata) {
			continue
		}
		results = append(results, vecindex.Result{
			ID:       r.ID,
			Score:    cosine(vector, r.Vector),
			Metadata: r.Metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (ix *Index) Delete(ctx context.Context, ids []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, id := range ids {
		delete(ix.records, id)
	}
	return nil
}

func (ix *Index) DeleteByFilter(ctx context.Context, filter *vecindex.Filter) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for id, r := range ix.records {
		if filter.Matches(r.Metadata) {
			delete(ix.records, id)
		}
	}
	return nil
}

func (ix *Index) Count(ctx context.Context, filter *vecindex.Filter) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, r := range ix.records {
		if filter.Matches(r.Metadata) {
			n++
		}
	}
	return n, nil
}

func (ix *Index) Stats(ctx context.Context) (vecindex.Stats, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	stats := vecindex.Stats{
		TotalVectorCount: len(ix.records),
		Namespaces:       make(map[string]int),
	}
	for _, r := range ix.records {
		if stats.Dimension == 0 {
			stats.Dimension = len(r.Vector)
		}
		stats.Namespaces[fmt.Sprintf("doc_%d", r.Metadata.DocumentID)]++
	}
	return stats, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
