package driving

import (
	"context"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

// RetrievalService exposes the three read-only corpus operations the
// orchestration engine (and the CLI) invoke: search, open, and find.
// All three return structured payloads; failures that the model can act
// on are reported as in-band status fields, not errors.
type RetrievalService interface {
	// Search runs a ranked full-text query. An empty or symbol-only
	// query succeeds with zero results.
	Search(ctx context.Context, query string, limit int) (*SearchResult, error)

	// Open returns document text covering [start, end). Overlapping
	// chunks are stitched without duplication; a gap between stored
	// chunks is marked inline. The actual offsets served are reported
	// back so callers can cite precisely.
	Open(ctx context.Context, docID string, start, end int) (*OpenResult, error)

	// Find locates literal (case-insensitive) occurrences of pattern in
	// a document at positions >= after, with surrounding context.
	Find(ctx context.Context, docID, pattern string, after int) (*FindResult, error)
}

// SearchResult is the payload for one search invocation.
type SearchResult struct {
	Query   string             `json:"query"`
	Results []domain.SearchHit `json:"results"`
}

// OpenResult is the payload for one open invocation. Status is empty on
// success; "document not found" and "no content found for range" are
// reported here rather than as errors so a model-driven loop can recover.
type OpenResult struct {
	DocID       string `json:"doc_id"`
	DocTitle    string `json:"doc_title,omitempty"`
	Text        string `json:"text,omitempty"`
	ActualStart int    `json:"actual_start"`
	ActualEnd   int    `json:"actual_end"`
	Status      string `json:"status,omitempty"`
}

// FindMatch is one located occurrence.
type FindMatch struct {
	Text       string `json:"text"`
	Context    string `json:"context"`
	Position   int    `json:"start_offset"`
	EndOffset  int    `json:"end_offset"`
	PageNumber *int   `json:"page_number,omitempty"`
}

// FindResult is the payload for one find invocation. Status reports
// "document not found" in-band, like OpenResult.
type FindResult struct {
	DocID   string      `json:"doc_id"`
	Pattern string      `json:"pattern"`
	Matches []FindMatch `json:"matches"`
	Status  string      `json:"status,omitempty"`
}
