package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres ensures the schema exists and wraps the pool.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	s := &Postgres{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Postgres) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id                bigserial PRIMARY KEY,
			name              text NOT NULL,
			original_filename text NOT NULL,
			file_size         bigint NOT NULL,
			content_hash      text NOT NULL UNIQUE,
			total_pages       int NOT NULL DEFAULT 0,
			author            text NOT NULL DEFAULT '',
			upload_date       timestamptz NOT NULL DEFAULT now(),
			processed_at      timestamptz
		)`,
		`CREATE TABLE IF NOT EXISTS query_history (
			id               bigserial PRIMARY KEY,
			session_id       uuid NOT NULL,
			question         text NOT NULL,
			answer           text NOT NULL,
			confidence       double precision NOT NULL DEFAULT 0,
			sources          jsonb,
			response_time_ms bigint NOT NULL DEFAULT 0,
			created_at       timestamptz NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Postgres) CreateDocument(ctx context.Context, doc *Document) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (name, original_filename, file_size, content_hash, total_pages, author)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, upload_date`,
		doc.Name, doc.OriginalFilename, doc.FileSize, doc.ContentHash, doc.TotalPages, doc.Author,
	).Scan(&doc.ID, &doc.UploadDate)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

const documentCols = `id, name, original_filename, file_size, content_hash, total_pages, author, upload_date, processed_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Name, &d.OriginalFilename, &d.FileSize,
		&d.ContentHash, &d.TotalPages, &d.Author, &d.UploadDate, &d.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &d, nil
}

func (s *Postgres) GetByHash(ctx context.Context, hash string) (*Document, error) {
	return scanDocument(s.pool.QueryRow(ctx,
		`SELECT `+documentCols+` FROM documents WHERE content_hash = $1`, hash))
}

func (s *Postgres) GetByID(ctx context.Context, id int64) (*Document, error) {
	return scanDocument(s.pool.QueryRow(ctx,
		`SELECT `+documentCols+` FROM documents WHERE id = $1`, id))
}

func (s *Postgres) List(ctx context.Context, skip, limit int) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentCols+` FROM documents ORDER BY upload_date DESC, id DESC OFFSET $1 LIMIT $2`,
		skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Name, &d.OriginalFilename, &d.FileSize,
			&d.ContentHash, &d.TotalPages, &d.Author, &d.UploadDate, &d.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Postgres) MarkProcessed(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET processed_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) CreateQueryRecord(ctx context.Context, rec *QueryRecord) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO query_history (session_id, question, answer, confidence, sources, response_time_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		rec.SessionID, rec.Question, rec.Answer, rec.Confidence, rec.Sources, rec.ResponseTimeMs,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("create query record: %w", err)
	}
	return nil
}

func (s *Postgres) RecentQueries(ctx context.Context, limit int) ([]QueryRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, question, answer, confidence, sources, response_time_ms, created_at
		 FROM query_history ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent queries: %w", err)
	}
	defer rows.Close()

	var recs []QueryRecord
	for rows.Next() {
		var r QueryRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Question, &r.Answer,
			&r.Confidence, &r.Sources, &r.ResponseTimeMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan query record: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
