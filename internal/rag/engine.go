package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docqa/internal/chunker"
	"github.com/dgallion1/docqa/internal/vecindex"
)

// EngineConfig carries the tunables the engine needs from the
// application config.
type EngineConfig struct {
	ModelName           string
	TopK                int
	ConfidenceThreshold float64
	MaxAnswerTokens     int
	MaxContextTokens    int
	Dimension           int
}

// Engine wires chunk ingestion into the vector index and retrieval
// into answer synthesis.
type Engine struct {
	embedder  Embedder
	index     vecindex.Index
	retriever *Retriever
	synth     *Synthesizer
	dimension int
	logger    *slog.Logger
}

func NewEngine(embedder Embedder, model Completer, index vecindex.Index, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	return &Engine{
		embedder:  embedder,
		index:     index,
		retriever: NewRetriever(embedder, index, cfg.TopK, cfg.ConfidenceThreshold),
		synth:     NewSynthesizer(model, cfg.ModelName, cfg.MaxAnswerTokens, cfg.MaxContextTokens),
		dimension: cfg.Dimension,
		logger:    logger,
	}
}

// IndexDocument embeds all chunk texts in one batch and upserts them
// under ids derived from the document id and chunk index, so
// re-indexing the same document overwrites instead of duplicating.
// Returns the number of vectors written.
func (e *Engine) IndexDocument(ctx context.Context, documentID int64, chunks []chunker.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := make([]vecindex.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vecindex.Record{
			ID:     vecindex.RecordID(documentID, c.Index),
			Vector: vectors[i],
			Metadata: vecindex.Metadata{
				DocumentID:      documentID,
				ChunkIndex:      c.Index,
				Text:            c.Text,
				CharCount:       c.CharCount,
				EstimatedTokens: c.EstimatedTokens,
				StartChar:       c.StartChar,
				EndChar:         c.EndChar,
			},
		}
	}

	if err := e.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert vectors: %w", err)
	}
	return len(records), nil
}

// QueryOptions narrows a question. Zero TopK and ConfidenceThreshold
// use the configured defaults; DocumentIDs restricts retrieval to
// those documents.
type QueryOptions struct {
	TopK                int
	ConfidenceThreshold float64
	DocumentIDs         []int64
}

// Answer retrieves context for the query and synthesizes a cited
// answer. Retrieval failures degrade to the insufficient-information
// answer rather than erroring; the failure is logged. ResponseTimeMs
// covers the full retrieve+synthesize path on every branch.
func (e *Engine) Answer(ctx context.Context, query string, opts QueryOptions) *Answer {
	start := time.Now()

	results, err := e.retriever.Retrieve(ctx, query, opts.TopK, opts.ConfidenceThreshold, filterFor(opts.DocumentIDs))
	if err != nil {
		e.logger.Warn("retrieval failed, answering without context", "error", err)
		results = nil
	}

	ans := e.synth.Synthesize(ctx, query, results)
	ans.ResponseTimeMs = time.Since(start).Milliseconds()
	return ans
}

// Search returns raw retrieval results without a confidence cutoff and
// without synthesis.
func (e *Engine) Search(ctx context.Context, query string, topK int, documentIDs []int64) ([]vecindex.Result, error) {
	return e.retriever.Search(ctx, query, topK, filterFor(documentIDs))
}

// DeleteDocument removes every vector belonging to the document. When
// this fails the caller must keep the metadata record so the document
// stays visible for a retry.
func (e *Engine) DeleteDocument(ctx context.Context, documentID int64) error {
	filter := &vecindex.Filter{DocumentIDs: []int64{documentID}}
	if err := e.index.DeleteByFilter(ctx, filter); err != nil {
		return fmt.Errorf("delete document %d vectors: %w", documentID, err)
	}
	return nil
}

// DocumentStats summarizes the indexed chunks of one document.
type DocumentStats struct {
	DocumentID      int64   `json:"document_id"`
	ChunkCount      int     `json:"chunk_count"`
	TotalCharacters int     `json:"total_characters"`
	EstimatedTokens int     `json:"estimated_tokens"`
	AvgChunkSize    float64 `json:"avg_chunk_size"`
}

// DocumentStats counts the document's vectors exactly and sums chunk
// sizes from their metadata, fetched with a fixed probe vector since
// the index only exposes similarity search.
func (e *Engine) DocumentStats(ctx context.Context, documentID int64) (*DocumentStats, error) {
	filter := &vecindex.Filter{DocumentIDs: []int64{documentID}}

	count, err := e.index.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count document %d vectors: %w", documentID, err)
	}
	stats := &DocumentStats{DocumentID: documentID, ChunkCount: count}
	if count == 0 {
		return stats, nil
	}

	probe := make([]float32, e.dimension)
	probe[0] = 1
	results, err := e.index.Query(ctx, probe, count, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch document %d chunks: %w", documentID, err)
	}
	for _, res := range results {
		stats.TotalCharacters += res.Metadata.CharCount
		stats.EstimatedTokens += res.Metadata.EstimatedTokens
	}
	if len(results) > 0 {
		stats.AvgChunkSize = float64(stats.TotalCharacters) / float64(len(results))
	}
	return stats, nil
}

// IndexStats exposes the whole-index view for the stats endpoint.
func (e *Engine) IndexStats(ctx context.Context) (vecindex.Stats, error) {
	return e.index.Stats(ctx)
}

func filterFor(documentIDs []int64) *vecindex.Filter {
	if len(documentIDs) == 0 {
		return nil
	}
	return &vecindex.Filter{DocumentIDs: documentIDs}
}
