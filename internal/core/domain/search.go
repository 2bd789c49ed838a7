package domain

// Location identifies a byte range within a document, with the page it
// falls on when known.
type Location struct {
	StartOffset int  `json:"start_offset"`
	EndOffset   int  `json:"end_offset"`
	PageNumber  *int `json:"page_number,omitempty"`
}

// SearchHit is a single ranked full-text search result. Hits are transient
// and recomputed per query; they are never persisted.
type SearchHit struct {
	// ChunkID is the matched chunk.
	ChunkID int64 `json:"-"`

	// DocID is the owning document.
	DocID string `json:"doc_id"`

	// DocTitle is the owning document's title.
	DocTitle string `json:"doc_title"`

	// Text is the full matched chunk text.
	Text string `json:"-"`

	// Snippet is a bounded, word-aligned excerpt of the chunk.
	Snippet string `json:"snippet"`

	// Location is the chunk's position in the document.
	Location Location `json:"location"`

	// Score is the index's relevance score. FTS5 rank values are
	// negative with better matches closer to zero.
	Score float64 `json:"relevance_score"`
}
