package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
	"github.com/campfire-labs/campfire/internal/core/ports/driving"
	"github.com/campfire-labs/campfire/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Tool-visible status strings. The orchestration loop forwards these to the
// model verbatim, so they stay short and literal.
const (
	statusDocumentNotFound = "document not found"
	statusNoContentInRange = "no content found for range"
)

// snippetLength bounds search result snippets.
const snippetLength = 200

// gapMarker separates stitched text across missing regions.
const gapMarker = " [...] "

// RetrievalService serves the search, open, and find operations over the
// corpus store.
type RetrievalService struct {
	store driven.CorpusStore
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(store driven.CorpusStore) *RetrievalService {
	return &RetrievalService{store: store}
}

// Search runs a ranked full-text query and decorates each hit with a
// bounded, word-aligned snippet centred on the first query term occurrence.
func (s *RetrievalService) Search(ctx context.Context, query string, limit int) (*driving.SearchResult, error) {
	logger.Debug("search: query=%q limit=%d", query, limit)

	hits, err := s.store.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching corpus: %w", err)
	}
	if hits == nil {
		// Empty result sets serialize as [], matching Open and Find
		// which always carry their payload fields.
		hits = []domain.SearchHit{}
	}

	for i := range hits {
		hits[i].Snippet = makeSnippet(hits[i].Text, query, snippetLength)
	}
	logger.Debug("search: %d hits", len(hits))

	return &driving.SearchResult{Query: query, Results: hits}, nil
}

// Open returns document text covering [start, end). Stored chunks overlap;
// each chunk contributes only the part past what has already been emitted,
// so overlapping regions appear exactly once. Gaps between stored chunks
// are marked inline.
func (s *RetrievalService) Open(ctx context.Context, docID string, start, end int) (*driving.OpenResult, error) {
	logger.Debug("open: doc=%s range=%d-%d", docID, start, end)

	if end <= start || start < 0 {
		return nil, fmt.Errorf("%w: range %d-%d", domain.ErrInvalidInput, start, end)
	}

	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &driving.OpenResult{DocID: docID, Status: statusDocumentNotFound}, nil
		}
		return nil, fmt.Errorf("loading document: %w", err)
	}

	chunks, err := s.store.ChunksInRange(ctx, docID, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}
	if len(chunks) == 0 {
		return &driving.OpenResult{
			DocID:    docID,
			DocTitle: doc.Title,
			Status:   statusNoContentInRange,
		}, nil
	}

	text, actualStart, actualEnd := stitchChunks(chunks, start, end)

	return &driving.OpenResult{
		DocID:       docID,
		DocTitle:    doc.Title,
		Text:        text,
		ActualStart: actualStart,
		ActualEnd:   actualEnd,
	}, nil
}

// Find locates literal, case-insensitive occurrences of pattern at document
// positions >= after. Matches found in chunk overlap regions are deduplicated
// and the result is sorted by position.
func (s *RetrievalService) Find(ctx context.Context, docID, pattern string, after int) (*driving.FindResult, error) {
	logger.Debug("find: doc=%s pattern=%q after=%d", docID, pattern, after)

	result := &driving.FindResult{DocID: docID, Pattern: pattern, Matches: []driving.FindMatch{}}

	if pattern == "" {
		return result, nil
	}
	if after < 0 {
		after = 0
	}

	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			result.Status = statusDocumentNotFound
			return result, nil
		}
		return nil, fmt.Errorf("loading document: %w", err)
	}

	chunks, err := s.store.ChunksFrom(ctx, docID, after)
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}

	re, reErr := regexp.Compile("(?i)" + regexp.QuoteMeta(pattern))

	seen := make(map[int]struct{})
	for i := range chunks {
		var chunkMatches []driving.FindMatch
		if reErr == nil {
			chunkMatches = findWithRegexp(&chunks[i], re, after)
		} else {
			// QuoteMeta should always yield a valid pattern; scan
			// directly if it somehow does not.
			chunkMatches = findWithScan(&chunks[i], pattern, after)
		}
		for _, m := range chunkMatches {
			if _, dup := seen[m.Position]; dup {
				continue
			}
			seen[m.Position] = struct{}{}
			result.Matches = append(result.Matches, m)
		}
	}

	sort.Slice(result.Matches, func(i, j int) bool {
		return result.Matches[i].Position < result.Matches[j].Position
	})
	logger.Debug("find: %d matches", len(result.Matches))

	return result, nil
}

// findWithRegexp locates occurrences within one chunk using a compiled
// case-insensitive literal pattern.
func findWithRegexp(chunk *domain.Chunk, re *regexp.Regexp, after int) []driving.FindMatch {
	var matches []driving.FindMatch
	for _, loc := range re.FindAllStringIndex(chunk.Text, -1) {
		start := chunk.StartOffset + loc[0]
		if start < after {
			continue
		}
		matches = append(matches, buildMatch(chunk, loc[0], loc[1]))
	}
	return matches
}

// findWithScan locates occurrences within one chunk by lowercased substring
// scanning.
func findWithScan(chunk *domain.Chunk, pattern string, after int) []driving.FindMatch {
	var matches []driving.FindMatch
	lowerText := strings.ToLower(chunk.Text)
	lowerPattern := strings.ToLower(pattern)

	for from := 0; ; {
		idx := strings.Index(lowerText[from:], lowerPattern)
		if idx == -1 {
			break
		}
		pos := from + idx
		end := pos + len(pattern)
		if chunk.StartOffset+pos >= after {
			matches = append(matches, buildMatch(chunk, pos, end))
		}
		from = pos + 1
	}
	return matches
}

// buildMatch assembles a match at chunk-local range [lo, hi) with up to 50
// bytes of context either side.
func buildMatch(chunk *domain.Chunk, lo, hi int) driving.FindMatch {
	ctxStart := max(0, lo-50)
	ctxEnd := min(len(chunk.Text), hi+50)

	return driving.FindMatch{
		Text:       chunk.Text[lo:hi],
		Context:    chunk.Text[ctxStart:ctxEnd],
		Position:   chunk.StartOffset + lo,
		EndOffset:  chunk.StartOffset + hi,
		PageNumber: chunk.PrimaryPage(),
	}
}

// stitchChunks assembles continuous text for [start, end) from overlapping
// chunks already sorted by start offset. Each chunk is clipped to the
// requested range and to the region past the previous chunk's contribution.
// Returns the text plus the actual offsets served.
func stitchChunks(chunks []domain.Chunk, start, end int) (string, int, int) {
	var parts []string
	actualStart := -1
	lastEnd := start

	for _, chunk := range chunks {
		lo := max(chunk.StartOffset, lastEnd)
		hi := min(chunk.EndOffset, end)
		if hi <= lo {
			continue
		}

		if len(parts) > 0 && lo > lastEnd {
			parts = append(parts, gapMarker)
		}
		parts = append(parts, chunk.Text[lo-chunk.StartOffset:hi-chunk.StartOffset])

		if actualStart == -1 {
			actualStart = lo
		}
		lastEnd = hi
	}

	if actualStart == -1 {
		return "", start, start
	}
	return strings.Join(parts, ""), actualStart, lastEnd
}

// makeSnippet builds a bounded excerpt of text centred on the first query
// term occurrence, aligned to word boundaries, with ellipses marking
// truncation.
func makeSnippet(text, query string, maxLength int) string {
	if len(text) <= maxLength {
		return strings.TrimSpace(text)
	}

	lower := strings.ToLower(text)
	best := 0
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if pos := strings.Index(lower, term); pos != -1 {
			best = pos
			break
		}
	}

	start := max(0, best-maxLength/2)
	end := min(len(text), start+maxLength)

	// Align to word boundaries so no word is cut in half.
	if start > 0 {
		for start < len(text) && text[start] != ' ' {
			start++
		}
		start = min(start+1, len(text))
	}
	if end < len(text) {
		for end > start && text[end] != ' ' {
			end--
		}
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return strings.TrimSpace(snippet)
}
