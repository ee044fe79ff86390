// Package pgvector implements the vector index on Postgres with the
// pgvector extension, using cosine distance for similarity.
package pgvector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/dgallion1/docqa/internal/vecindex"
)

type Index struct {
	pool      *pgxpool.Pool
	dimension int
}

// New connects to Postgres, registers the vector type and ensures the
// schema exists.
func New(ctx context.Context, connStr string, dimension int) (*Index, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	ix := &Index{pool: pool, dimension: dimension}
	if err := ix.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return ix, nil
}

func (ix *Index) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vectors (
			id               text PRIMARY KEY,
			document_id      bigint NOT NULL,
			chunk_index      int NOT NULL,
			chunk_text       text NOT NULL,
			char_count       int NOT NULL,
			estimated_tokens int NOT NULL,
			start_char       int NOT NULL,
			end_char         int NOT NULL,
			embedding        vector(%d) NOT NULL
		)`, ix.dimension),
		`CREATE INDEX IF NOT EXISTS vectors_document_id_idx ON vectors (document_id)`,
	}
	for _, stmt := range stmts {
		if _, err := ix.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (ix *Index) Close() {
	ix.pool.Close()
}

const upsertSQL = `INSERT INTO vectors
	(id, document_id, chunk_index, chunk_text, char_count, estimated_tokens, start_char, end_char, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		document_id = EXCLUDED.document_id,
		chunk_index = EXCLUDED.chunk_index,
		chunk_text = EXCLUDED.chunk_text,
		char_count = EXCLUDED.char_count,
		estimated_tokens = EXCLUDED.estimated_tokens,
		start_char = EXCLUDED.start_char,
		end_char = EXCLUDED.end_char,
		embedding = EXCLUDED.embedding`

// Upsert writes records in batches of vecindex.UpsertBatchSize. Any
// failing batch fails the call; earlier batches stay applied and the
// caller decides whether to retry or clean up.
func (ix *Index) Upsert(ctx context.Context, records []vecindex.Record) error {
	for start := 0; start < len(records); start += vecindex.UpsertBatchSize {
		end := start + vecindex.UpsertBatchSize
		if end > len(records) {
			end = len(records)
		}

		batch := &pgx.Batch{}
		for _, r := range records[start:end] {
			m := r.Metadata
			batch.Queue(upsertSQL,
				r.ID, m.DocumentID, m.ChunkIndex, m.Text,
				m.CharCount, m.EstimatedTokens, m.StartChar, m.EndChar,
				pgvec.NewVector(r.Vector),
			)
		}

		br := ix.pool.SendBatch(ctx, batch)
		if err := execBatch(br, end-start); err != nil {
			return fmt.Errorf("upsert batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func execBatch(br pgx.BatchResults, n int) error {
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
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

	query := `SELECT id, document_id, chunk_index, chunk_text, char_count,
			estimated_tokens, start_char, end_char,
			1 - (embedding <=> $1) AS score
		FROM vectors`
	args := []any{pgvec.NewVector(vector)}
	if filter != nil && len(filter.DocumentIDs) > 0 {
		query += ` WHERE document_id = ANY($2)`
		args = append(args, filter.DocumentIDs)
	}
	query += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT %d`, topK)

	rows, err := ix.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var results []vecindex.Result
	for rows.Next() {
		var r vecindex.Result
		m := &r.Metadata
		if err := rows.Scan(&r.ID, &m.DocumentID, &m.ChunkIndex, &m.Text,
			&m.CharCount, &m.EstimatedTokens, &m.StartChar, &m.EndChar, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return results, nil
}

func (ix *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := ix.pool.Exec(ctx, `DELETE FROM vectors WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return nil
}

func (ix *Index) DeleteByFilter(ctx context.Context, filter *vecindex.Filter) error {
	if filter == nil || len(filter.DocumentIDs) == 0 {
		return fmt.Errorf("refusing unfiltered delete")
	}
	if _, err := ix.pool.Exec(ctx, `DELETE FROM vectors WHERE document_id = ANY($1)`, filter.DocumentIDs); err != nil {
		return fmt.Errorf("delete vectors by filter: %w", err)
	}
	return nil
}

// Count returns the exact number of stored vectors matching the filter.
// Postgres gives us exact filtered counts, so callers never need the
// oversized top-k approximation.
func (ix *Index) Count(ctx context.Context, filter *vecindex.Filter) (int, error) {
	query := `SELECT count(*) FROM vectors`
	var args []any
	if filter != nil && len(filter.DocumentIDs) > 0 {
		query += ` WHERE document_id = ANY($1)`
		args = append(args, filter.DocumentIDs)
	}
	var n int
	if err := ix.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

func (ix *Index) Stats(ctx context.Context) (vecindex.Stats, error) {
	stats := vecindex.Stats{Dimension: ix.dimension}

	if err := ix.pool.QueryRow(ctx, `SELECT count(*) FROM vectors`).Scan(&stats.TotalVectorCount); err != nil {
		return stats, fmt.Errorf("index stats: %w", err)
	}

	rows, err := ix.pool.Query(ctx, `SELECT document_id, count(*) FROM vectors GROUP BY document_id`)
	if err != nil {
		return stats, fmt.Errorf("index stats: %w", err)
	}
	defer rows.Close()

	stats.Namespaces = make(map[string]int)
	for rows.Next() {
		var docID int64
		var n int
		if err := rows.Scan(&docID, &n); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		stats.Namespaces[fmt.Sprintf("doc_%d", docID)] = n
	}
	return stats, rows.Err()
}
