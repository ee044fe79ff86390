// Package rag composes chunk ingestion, retrieval and grounded answer
// synthesis.
package rag

import (
	"context"
	"fmt"

	"github.com/dgallion1/docqa/internal/vecindex"
)

// Embedder turns texts into embedding vectors, order preserving.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever embeds a query and finds the chunks most similar to it.
type Retriever struct {
	embedder Embedder
	index    vecindex.Index

	defaultTopK      int
	defaultThreshold float64
}

func NewRetriever(embedder Embedder, index vecindex.Index, defaultTopK int, defaultThreshold float64) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Retriever{
		embedder:         embedder,
		index:            index,
		defaultTopK:      defaultTopK,
		defaultThreshold: defaultThreshold,
	}
}

// Retrieve returns index results with score >= threshold, preserving the
// index's descending-score order. Zero topK and threshold fall back to
// the configured defaults.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, threshold float64, filter *vecindex.Filter) ([]vecindex.Result, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}
	if threshold == 0 {
		threshold = r.defaultThreshold
	}

	results, err := r.query(ctx, query, topK, filter)
	if err != nil {
		return nil, err
	}

	filtered := results[:0]
	for _, res := range results {
		if res.Score >= threshold {
			filtered = append(filtered, res)
		}
	}
	return filtered, nil
}

// Search is retrieval without a confidence cutoff, for the content
// search endpoint.
func (r *Retriever) Search(ctx context.Context, query string, topK int, filter *vecindex.Filter) ([]vecindex.Result, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}
	return r.query(ctx, query, topK, filter)
}

func (r *Retriever) query(ctx context.Context, query string, topK int, filter *vecindex.Filter) ([]vecindex.Result, error) {
	vectors, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors, want 1", len(vectors))
	}

	results, err := r.index.Query(ctx, vectors[0], topK, filter)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return results, nil
}
