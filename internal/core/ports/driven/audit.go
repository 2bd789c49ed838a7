package driven

import (
	"context"
	"time"
)

// AuditEntry records one critic decision for a request.
type AuditEntry struct {
	ID             string
	Timestamp      time.Time
	ConversationID string
	Query          string
	Status         string
	Reasons        []string
	Emergency      bool
	Backend        string
	LatencyMS      int64
	ResponseJSON   string
}

// AuditStats summarises the audit log.
type AuditStats struct {
	Total     int
	Blocked   int
	Emergency int
}

// AuditLog persists critic decisions. Optional; a nil AuditLog disables
// decision persistence.
type AuditLog interface {
	// Record appends one entry.
	Record(ctx context.Context, entry AuditEntry) error

	// Recent returns the most recent entries, newest first. blockedOnly
	// restricts the result to BLOCK decisions.
	Recent(ctx context.Context, limit int, blockedOnly bool) ([]AuditEntry, error)

	// Stats reports decision counts across the whole log.
	Stats(ctx context.Context) (*AuditStats, error)
}
