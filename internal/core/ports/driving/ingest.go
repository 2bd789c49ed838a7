package driving

import (
	"context"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

// IngestService loads source files into the corpus.
type IngestService interface {
	// IngestFile extracts, chunks, and stores one file. An empty docID
	// mints a new one; a docID already in the corpus yields a skipped
	// report instead of a duplicate. On any failure the document and its
	// chunks are rolled back.
	IngestFile(ctx context.Context, path, docID, title string) (*IngestReport, error)

	// IngestDir ingests every supported file under dir. Per-file
	// failures are reported but do not stop the walk.
	IngestDir(ctx context.Context, dir string) ([]IngestReport, error)

	// Remove deletes a document and its chunks.
	Remove(ctx context.Context, docID string) error

	// Validate checks a stored document's chunk coverage: chunks must be
	// non-empty and consecutive chunks must not leave large gaps.
	Validate(ctx context.Context, docID string) error

	// Documents lists the corpus contents.
	Documents(ctx context.Context) ([]domain.Document, error)

	// Stats reports corpus-wide counts.
	Stats(ctx context.Context) (*domain.CorpusStats, error)
}

// IngestReport summarises one ingested file.
type IngestReport struct {
	DocID  string `json:"doc_id"`
	Title  string `json:"title"`
	Path   string `json:"path"`
	Chunks int    `json:"chunks"`
	Bytes  int    `json:"bytes"`

	// Skipped reports that the document was already in the corpus and
	// nothing was written.
	Skipped bool   `json:"skipped,omitempty"`
	Err     string `json:"error,omitempty"`
}
