// Package store persists document metadata and query history.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Document is the metadata row for one uploaded document. Vector data
// lives in the index; this record is the catalog entry.
type Document struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	OriginalFilename string     `json:"original_filename"`
	FileSize         int64      `json:"file_size"`
	ContentHash      string     `json:"content_hash"`
	TotalPages       int        `json:"total_pages"`
	Author           string     `json:"author,omitempty"`
	UploadDate       time.Time  `json:"upload_date"`
	ProcessedAt      *time.Time `json:"processed_at,omitempty"`
}

// QueryRecord is one answered question, kept for history.
type QueryRecord struct {
	ID             int64           `json:"id"`
	SessionID      uuid.UUID       `json:"session_id"`
	Question       string          `json:"question"`
	Answer         string          `json:"answer"`
	Confidence     float64         `json:"confidence"`
	Sources        json.RawMessage `json:"sources,omitempty"`
	ResponseTimeMs int64           `json:"response_time_ms"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Store is the metadata persistence contract.
type Store interface {
	// CreateDocument inserts the document and fills in its ID and
	// UploadDate.
	CreateDocument(ctx context.Context, doc *Document) error

	// GetByHash finds a document by content hash, or ErrNotFound.
	GetByHash(ctx context.Context, hash string) (*Document, error)

	// GetByID finds a document by id, or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*Document, error)

	// List returns documents newest first, paginated.
	List(ctx context.Context, skip, limit int) ([]Document, error)

	// MarkProcessed stamps processed_at once indexing succeeds.
	MarkProcessed(ctx context.Context, id int64) error

	// Delete removes the document row, or ErrNotFound.
	Delete(ctx context.Context, id int64) error

	// CreateQueryRecord appends to query history.
	CreateQueryRecord(ctx context.Context, rec *QueryRecord) error

	// RecentQueries returns the latest history entries, newest first.
	RecentQueries(ctx context.Context, limit int) ([]QueryRecord, error)
}
