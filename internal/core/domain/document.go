package domain

import "time"

// Document represents an ingested corpus document.
// Documents are immutable once created; the only mutation is full deletion,
// which cascades to all owned chunks and index entries.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title.
	Title string

	// Path is the original source location on disk.
	Path string

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// Chunk represents an offset-addressable slice of a document's logical text.
// It is the unit of indexing, retrieval, and citation.
//
// Invariant: EndOffset > StartOffset, and Text equals the exact byte slice
// [StartOffset, EndOffset) of the document's logical text. Citation accuracy
// downstream depends on this holding byte-for-byte.
type Chunk struct {
	// ID is the store-assigned chunk identifier (0 until persisted).
	ID int64

	// DocID links to the owning Document.
	DocID string

	// StartOffset is the inclusive start position in the document text.
	StartOffset int

	// EndOffset is the exclusive end position in the document text.
	EndOffset int

	// Index is the ordinal position within the document.
	Index int

	// Pages holds the sorted, deduplicated page numbers the chunk spans.
	// Empty when the source has no page structure.
	Pages []int

	// Text is the chunk content.
	Text string
}

// PrimaryPage returns the first page the chunk spans, or nil when the
// source has no page structure.
func (c *Chunk) PrimaryPage() *int {
	if len(c.Pages) == 0 {
		return nil
	}
	p := c.Pages[0]
	return &p
}

// Intersects reports whether the chunk overlaps the half-open range
// [start, end).
func (c *Chunk) Intersects(start, end int) bool {
	return c.EndOffset > start && c.StartOffset < end
}

// Segment is a page-tagged run of extracted text. Extractors emit segments
// in document order with contiguous offsets; the chunker uses them to map
// chunk offsets back to page numbers.
type Segment struct {
	// Text is the extracted text of the segment.
	Text string

	// StartOffset is the segment's position in the document's logical text.
	StartOffset int

	// EndOffset is the exclusive end position.
	EndOffset int

	// PageNumber is the 1-based source page, or 0 when pageless.
	PageNumber int
}

// CorpusStats summarises the stored corpus.
type CorpusStats struct {
	Documents int
	Chunks    int
}
