// Package chunker splits document text into overlapping, offset-addressable
// chunks suitable for indexing and citation.
package chunker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

// DefaultChunkSize is the default target chunk length in bytes.
const DefaultChunkSize = 1000

// DefaultOverlap is the default overlap between consecutive chunks.
const DefaultOverlap = 200

// DefaultMinChunkSize is the default minimum chunk length.
const DefaultMinChunkSize = 100

// Chunker splits text into chunks with configurable window size and overlap,
// preferring sentence boundaries when enabled.
//
// Every produced chunk satisfies Text == text[StartOffset:EndOffset], so a
// later open of the cited range returns the chunk verbatim.
type Chunker struct {
	chunkSize        int
	overlap          int
	minChunkSize     int
	respectSentences bool

	sentenceEndings *regexp.Regexp
	paragraphBreaks *regexp.Regexp
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMinChunkSize sets the minimum chunk size.
func WithMinChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.minChunkSize = size
		}
	}
}

// WithSentenceBoundaries toggles breaking at sentence boundaries.
func WithSentenceBoundaries(enabled bool) Option {
	return func(c *Chunker) {
		c.respectSentences = enabled
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize:        DefaultChunkSize,
		overlap:          DefaultOverlap,
		minChunkSize:     DefaultMinChunkSize,
		respectSentences: true,
		sentenceEndings:  regexp.MustCompile(`[.!?]+\s+`),
		paragraphBreaks:  regexp.MustCompile(`\n\s*\n`),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ChunkText splits text into overlapping chunks for docID.
//
// Text shorter than the minimum chunk size becomes a single chunk. Chunk
// boundaries are trimmed of surrounding whitespace by moving the offsets,
// never by rewriting the text, so offsets stay exact.
func (c *Chunker) ChunkText(text, docID string) []domain.Chunk {
	if text == "" {
		return nil
	}
	if len(text) < c.minChunkSize {
		start, end := trimRange(text, 0, len(text))
		if start >= end {
			return nil
		}
		return []domain.Chunk{{
			DocID:       docID,
			StartOffset: start,
			EndOffset:   end,
			Index:       0,
			Text:        text[start:end],
		}}
	}

	var chunks []domain.Chunk
	index := 0
	start := 0

	for start < len(text) {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) && c.respectSentences {
			end = c.findSentenceBoundary(text, start, end)
		}

		cs, ce := trimRange(text, start, end)
		if cs < ce {
			if n := len(chunks); n > 0 && cs <= chunks[n-1].StartOffset {
				// A mostly-whitespace window trims back onto the
				// previous chunk's start. Extend that chunk instead of
				// emitting a duplicate, so start offsets stay strictly
				// increasing.
				if ce > chunks[n-1].EndOffset {
					chunks[n-1].EndOffset = ce
					chunks[n-1].Text = text[chunks[n-1].StartOffset:ce]
				}
			} else {
				chunks = append(chunks, domain.Chunk{
					DocID:       docID,
					StartOffset: cs,
					EndOffset:   ce,
					Index:       index,
					Text:        text[cs:ce],
				})
				index++
			}
		}

		if end >= len(text) {
			break
		}

		next := end - c.overlap
		// Forward progress even when overlap >= chunk size.
		if next <= start {
			next = start + max(1, c.chunkSize/2)
		}
		start = next
	}

	return chunks
}

// ChunkSegments chunks the text reconstructed from extracted segments and
// tags each chunk with the pages it spans. Small trailing chunks are merged
// into their predecessor.
func (c *Chunker) ChunkSegments(docID string, segments []domain.Segment) []domain.Chunk {
	if len(segments) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(seg.Text)
	}
	text := sb.String()

	chunks := c.ChunkText(text, docID)
	for i := range chunks {
		chunks[i].Pages = pagesFor(segments, chunks[i].StartOffset, chunks[i].EndOffset)
	}

	return c.MergeSmall(text, chunks)
}

// MergeSmall merges chunks shorter than the minimum size into their
// predecessor. Merged chunks are re-sliced from text so that the exact-slice
// invariant survives merging. Idempotent.
func (c *Chunker) MergeSmall(text string, chunks []domain.Chunk) []domain.Chunk {
	if len(chunks) == 0 {
		return chunks
	}

	merged := make([]domain.Chunk, 0, len(chunks))
	current := chunks[0]

	for _, ch := range chunks[1:] {
		if len(ch.Text) < c.minChunkSize {
			current = domain.Chunk{
				DocID:       current.DocID,
				StartOffset: current.StartOffset,
				EndOffset:   ch.EndOffset,
				Pages:       unionPages(current.Pages, ch.Pages),
				Text:        text[current.StartOffset:ch.EndOffset],
			}
			continue
		}
		merged = append(merged, current)
		current = ch
	}
	merged = append(merged, current)

	for i := range merged {
		merged[i].Index = i
	}
	return merged
}

// findSentenceBoundary returns the best chunk end near targetEnd: the
// sentence ending closest to the target (at most 50 bytes past it), then a
// paragraph break, then targetEnd itself.
func (c *Chunker) findSentenceBoundary(text string, start, targetEnd int) int {
	searchStart := max(start+c.minChunkSize, targetEnd-200)
	searchEnd := min(len(text), targetEnd+100)
	if searchStart >= searchEnd {
		return targetEnd
	}

	window := text[searchStart:searchEnd]

	best := -1
	bestDistance := -1
	for _, m := range c.sentenceEndings.FindAllStringIndex(window, -1) {
		abs := searchStart + m[1]
		if abs > targetEnd+50 {
			continue
		}
		distance := abs - targetEnd
		if distance < 0 {
			distance = -distance
		}
		if best == -1 || distance < bestDistance {
			best = abs
			bestDistance = distance
		}
	}
	if best != -1 {
		return best
	}

	for _, m := range c.paragraphBreaks.FindAllStringIndex(window, -1) {
		abs := searchStart + m[1]
		if abs <= targetEnd+50 {
			return abs
		}
	}

	return targetEnd
}

// trimRange narrows [start, end) past surrounding ASCII whitespace.
func trimRange(text string, start, end int) (int, int) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return start, end
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// pagesFor returns the sorted, deduplicated pages of segments intersecting
// the half-open range [start, end).
func pagesFor(segments []domain.Segment, start, end int) []int {
	seen := make(map[int]struct{})
	for _, seg := range segments {
		if seg.PageNumber <= 0 {
			continue
		}
		if seg.EndOffset > start && seg.StartOffset < end {
			seen[seg.PageNumber] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

func unionPages(a, b []int) []int {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	seen := make(map[int]struct{}, len(a)+len(b))
	for _, p := range a {
		seen[p] = struct{}{}
	}
	for _, p := range b {
		seen[p] = struct{}{}
	}
	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}
