// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - CorpusStore: Document, chunk, and full-text index persistence
//   - AuditLog: Safety decision audit trail persistence
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Full-text search uses an FTS5 external-content table
// kept in sync with the chunks table by triggers.
//
// # Data Location
//
// By default, the database is stored at ~/.campfire/data/corpus.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
