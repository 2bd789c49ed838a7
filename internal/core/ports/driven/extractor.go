package driven

import (
	"context"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

// Extractor turns a source file into ordered plain-text segments with
// document-relative offsets. Segment offsets must be contiguous with the
// text each segment carries so chunk offsets stay exact.
type Extractor interface {
	// Extract reads the file at path and returns its segments.
	Extract(ctx context.Context, path string) ([]domain.Segment, error)

	// Supports reports whether the extractor handles the file extension.
	Supports(ext string) bool
}
