package driven

import "github.com/campfire-labs/campfire/internal/core/domain"

// PolicyStore loads the safety policy the critic enforces. Implementations
// merge file overrides over the built-in defaults and may watch the file
// for changes.
type PolicyStore interface {
	// Policy returns the current effective policy. Safe for concurrent
	// use; implementations that reload swap the policy atomically.
	Policy() domain.Policy

	// Close stops any file watcher.
	Close() error
}
