// Package plaintext provides a text extractor for plain text files.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text files. Form feed characters are treated as
// page breaks: a file containing them yields one numbered segment per page,
// with the form feeds themselves dropped from the document text. A file
// without form feeds yields a single pageless segment.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Supports reports whether the extractor handles the file extension.
func (e *Extractor) Supports(ext string) bool {
	switch ext {
	case ".txt", ".text", ".log":
		return true
	}
	return false
}

// Extract reads the file and returns its segments with contiguous
// document-relative offsets.
func (e *Extractor) Extract(_ context.Context, path string) ([]domain.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	content := normalizeNewlines(string(data))
	pages := strings.Split(content, "\f")

	if len(pages) == 1 {
		return []domain.Segment{{
			Text:        content,
			StartOffset: 0,
			EndOffset:   len(content),
		}}, nil
	}

	segments := make([]domain.Segment, 0, len(pages))
	offset := 0
	for i, page := range pages {
		if page == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			Text:        page,
			StartOffset: offset,
			EndOffset:   offset + len(page),
			PageNumber:  i + 1,
		})
		offset += len(page)
	}
	return segments, nil
}

// normalizeNewlines converts CRLF and lone CR line endings to LF.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
