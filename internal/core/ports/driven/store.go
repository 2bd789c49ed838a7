package driven

import (
	"context"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

// CorpusStore persists documents and their chunks and serves ranked
// full-text queries over them. Backed by SQLite with an FTS index.
type CorpusStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents ordered by title.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document and its chunks atomically.
	DeleteDocument(ctx context.Context, id string) error

	// SaveChunks stores chunks for a document in one transaction.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// ChunksInRange returns a document's chunks intersecting the
	// half-open offset range [start, end), ordered by start offset.
	ChunksInRange(ctx context.Context, docID string, start, end int) ([]domain.Chunk, error)

	// ChunksFrom returns a document's chunks whose end offset is greater
	// than after, ordered by start offset. Used for find continuation.
	ChunksFrom(ctx context.Context, docID string, after int) ([]domain.Chunk, error)

	// Search runs a ranked full-text query, returning at most limit hits.
	// An empty query returns no hits and no error.
	Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error)

	// Stats reports corpus-wide counts.
	Stats(ctx context.Context) (*domain.CorpusStats, error)

	// Close releases the underlying database handle.
	Close() error
}
