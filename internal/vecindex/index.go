// Package vecindex defines the vector index contract: id-addressed
// storage of embedding vectors with metadata, nearest-neighbor query
// with optional attribute filtering, and deletion by id or filter.
package vecindex

import (
	"context"
	"fmt"
)

// UpsertBatchSize bounds how many records go upstream in one request.
const UpsertBatchSize = 100

// Metadata is the per-vector payload stored alongside each embedding.
type Metadata struct {
	DocumentID      int64  `json:"document_id"`
	ChunkIndex      int    `json:"chunk_index"`
	Text            string `json:"text"`
	CharCount       int    `json:"char_count"`
	EstimatedTokens int    `json:"estimated_tokens"`
	StartChar       int    `json:"start_char"`
	EndChar         int    `json:"end_char"`
}

// Record is the unit stored in the index.
type Record struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Result is one ranked match from a similarity query. Score is cosine
// similarity; higher is more relevant.
type Result struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Filter restricts a query or deletion to records whose document id is
// in the set. A nil Filter matches everything.
type Filter struct {
	DocumentIDs []int64
}

// Matches reports whether a record's metadata satisfies the filter.
func (f *Filter) Matches(m Metadata) bool {
	if f == nil || len(f.DocumentIDs) == 0 {
		return true
	}
	for _, id := range f.DocumentIDs {
		if m.DocumentID == id {
			return true
		}
	}
	return false
}

// Stats describes the index contents.
type Stats struct {
	TotalVectorCount int            `json:"total_vector_count"`
	Dimension        int            `json:"dimension"`
	IndexFullness    float64        `json:"index_fullness"`
	Namespaces       map[string]int `json:"namespaces,omitempty"`
}

// RecordID derives the stable vector id for a document chunk. The scheme
// makes re-indexing the same chunk an overwrite, never a duplicate.
func RecordID(documentID int64, chunkIndex int) string {
	return fmt.Sprintf("doc_%d_chunk_%d", documentID, chunkIndex)
}

// Index is the vector store contract. Query errors are returned to the
// caller; degrading to an empty result set on upstream failure is an
// explicit choice the caller makes, not something the index hides.
type Index interface {
	// Upsert writes records idempotently by id, batching internally.
	// A failure on any batch fails the whole call; the caller owns
	// retry or cleanup of partially applied batches.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to topK results ordered by descending score.
	Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Result, error)

	// Delete removes records by id. Missing ids are not an error.
	Delete(ctx context.Context, ids []string) error

	// DeleteByFilter removes every record matching the filter.
	DeleteByFilter(ctx context.Context, filter *Filter) error

	// Count returns the exact number of records matching the filter.
	Count(ctx context.Context, filter *Filter) (int, error)

	// Stats describes the index contents.
	Stats(ctx context.Context) (Stats, error)
}
