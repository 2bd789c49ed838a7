package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/campfire-labs/campfire/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// corpus and audit store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.campfire/data/corpus.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".campfire", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "corpus.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CorpusStore returns a CorpusStore interface backed by this store.
func (s *Store) CorpusStore() driven.CorpusStore {
	return &corpusStore{store: s}
}

// AuditLog returns an AuditLog interface backed by this store.
func (s *Store) AuditLog() driven.AuditLog {
	return &auditLog{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Corpus Store ====================

// corpusStore implements driven.CorpusStore.
type corpusStore struct {
	store *Store
}

var _ driven.CorpusStore = (*corpusStore)(nil)

// SaveDocument stores or updates a document.
func (s *corpusStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return domain.ErrInvalidInput
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, path, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			path = excluded.path
	`, doc.ID, doc.Title, doc.Path, doc.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *corpusStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, path, created_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	var createdAt sql.NullTime
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Path, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}

	return &doc, nil
}

// ListDocuments returns all documents ordered by title.
func (s *corpusStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, path, created_at
		FROM documents ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var createdAt sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Path, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if createdAt.Valid {
			doc.CreatedAt = createdAt.Time
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document and its chunks atomically. The FTS
// index entries go with the chunks via the delete trigger.
func (s *corpusStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Explicit chunk delete so the FTS trigger fires row by row.
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE doc_id = ?", id); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SaveChunks stores chunks for a document in one transaction.
func (s *corpusStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (doc_id, chunk_index, start_offset, end_offset, page_number, pages, text)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		chunk := &chunks[i]

		var pagesJSON sql.NullString
		if len(chunk.Pages) > 0 {
			data, err := json.Marshal(chunk.Pages)
			if err != nil {
				return fmt.Errorf("marshalling chunk pages: %w", err)
			}
			pagesJSON = sql.NullString{String: string(data), Valid: true}
		}

		var pageNumber sql.NullInt64
		if p := chunk.PrimaryPage(); p != nil {
			pageNumber = sql.NullInt64{Int64: int64(*p), Valid: true}
		}

		res, err := stmt.ExecContext(ctx, chunk.DocID, chunk.Index,
			chunk.StartOffset, chunk.EndOffset, pageNumber, pagesJSON, chunk.Text)
		if err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading chunk id: %w", err)
		}
		chunk.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ChunksInRange returns a document's chunks intersecting [start, end),
// ordered by start offset.
func (s *corpusStore) ChunksInRange(ctx context.Context, docID string, start, end int) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, doc_id, chunk_index, start_offset, end_offset, page_number, pages, text
		FROM chunks
		WHERE doc_id = ? AND end_offset > ? AND start_offset < ?
		ORDER BY start_offset
	`, docID, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// ChunksFrom returns a document's chunks whose end offset is greater than
// after, ordered by start offset.
func (s *corpusStore) ChunksFrom(ctx context.Context, docID string, after int) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, doc_id, chunk_index, start_offset, end_offset, page_number, pages, text
		FROM chunks
		WHERE doc_id = ? AND end_offset > ?
		ORDER BY start_offset
	`, docID, after)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// Search runs a ranked full-text query over chunk text.
//
// The raw query is sanitized for the FTS5 parser: punctuation becomes
// spaces and each remaining term is quoted and OR-joined, so user input can
// never inject FTS syntax. A query that sanitizes to nothing returns no
// hits and no error.
func (s *corpusStore) Search(ctx context.Context, query string, limit int) ([]domain.SearchHit, error) {
	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT
			c.id,
			c.doc_id,
			c.text,
			c.start_offset,
			c.end_offset,
			c.page_number,
			d.title,
			rank
		FROM chunks_fts
		JOIN chunks c ON chunks_fts.rowid = c.id
		JOIN documents d ON c.doc_id = d.id
		WHERE chunks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("querying full-text index: %w", err)
	}
	defer rows.Close()

	var hits []domain.SearchHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit domain.SearchHit
		var pageNumber sql.NullInt64
		if err := rows.Scan(&hit.ChunkID, &hit.DocID, &hit.Text,
			&hit.Location.StartOffset, &hit.Location.EndOffset,
			&pageNumber, &hit.DocTitle, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		if pageNumber.Valid {
			p := int(pageNumber.Int64)
			hit.Location.PageNumber = &p
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search hits: %w", err)
	}

	return hits, nil
}

// Stats reports corpus-wide counts.
func (s *corpusStore) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	var stats domain.CorpusStats
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents").Scan(&stats.Documents); err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks").Scan(&stats.Chunks); err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	return &stats, nil
}

// Close closes the shared database handle.
func (s *corpusStore) Close() error {
	return s.store.Close()
}

var (
	ftsPunctuation = regexp.MustCompile(`[^\w\s]`)
	ftsWhitespace  = regexp.MustCompile(`\s+`)
)

// buildFTSQuery sanitizes a raw user query into an FTS5 MATCH expression.
// Returns "" when nothing searchable remains.
func buildFTSQuery(query string) string {
	sanitized := ftsPunctuation.ReplaceAllString(query, " ")
	sanitized = strings.TrimSpace(ftsWhitespace.ReplaceAllString(sanitized, " "))
	if sanitized == "" {
		return ""
	}

	terms := strings.Fields(sanitized)
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + term + `"`
	}
	return strings.Join(quoted, " OR ")
}

// scanChunks scans chunk rows.
func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var pageNumber sql.NullInt64
		var pagesJSON sql.NullString
		if err := rows.Scan(&chunk.ID, &chunk.DocID, &chunk.Index,
			&chunk.StartOffset, &chunk.EndOffset, &pageNumber, &pagesJSON, &chunk.Text); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		if pagesJSON.Valid && pagesJSON.String != "" {
			if err := json.Unmarshal([]byte(pagesJSON.String), &chunk.Pages); err != nil {
				return nil, fmt.Errorf("unmarshaling chunk pages: %w", err)
			}
		} else if pageNumber.Valid {
			chunk.Pages = []int{int(pageNumber.Int64)}
		}

		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// ==================== Audit Log ====================

// auditLog implements driven.AuditLog.
type auditLog struct {
	store *Store
}

var _ driven.AuditLog = (*auditLog)(nil)

// Record appends one audit entry.
func (a *auditLog) Record(ctx context.Context, entry driven.AuditEntry) error {
	if entry.ID == "" {
		return domain.ErrInvalidInput
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	reasonsJSON, err := json.Marshal(entry.Reasons)
	if err != nil {
		return fmt.Errorf("marshalling reasons: %w", err)
	}

	_, err = a.store.db.ExecContext(ctx, `
		INSERT INTO audit_logs
			(id, created_at, conversation_id, query, status, reasons,
			 emergency, backend, latency_ms, response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Timestamp, entry.ConversationID, entry.Query, entry.Status,
		string(reasonsJSON), entry.Emergency, entry.Backend, entry.LatencyMS,
		entry.ResponseJSON)

	if err != nil {
		return fmt.Errorf("recording audit entry: %w", err)
	}
	return nil
}

// Recent returns the most recent audit entries, newest first.
func (a *auditLog) Recent(ctx context.Context, limit int, blockedOnly bool) ([]driven.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, created_at, conversation_id, query, status, reasons,
		       emergency, backend, latency_ms, response
		FROM audit_logs
	`
	args := []any{}
	if blockedOnly {
		query += " WHERE status = ?"
		args = append(args, string(domain.CriticBlock))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := a.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []driven.AuditEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry driven.AuditEntry
		var createdAt sql.NullTime
		var conversationID, reasonsJSON, backend sql.NullString
		if err := rows.Scan(&entry.ID, &createdAt, &conversationID, &entry.Query,
			&entry.Status, &reasonsJSON, &entry.Emergency, &backend,
			&entry.LatencyMS, &entry.ResponseJSON); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if createdAt.Valid {
			entry.Timestamp = createdAt.Time
		}
		entry.ConversationID = conversationID.String
		entry.Backend = backend.String
		if reasonsJSON.Valid && reasonsJSON.String != "" {
			if err := json.Unmarshal([]byte(reasonsJSON.String), &entry.Reasons); err != nil {
				return nil, fmt.Errorf("unmarshaling reasons: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	return entries, nil
}

// Stats reports decision counts across the whole log.
func (a *auditLog) Stats(ctx context.Context) (*driven.AuditStats, error) {
	var stats driven.AuditStats
	err := a.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN emergency THEN 1 ELSE 0 END), 0)
		FROM audit_logs
	`, string(domain.CriticBlock)).Scan(&stats.Total, &stats.Blocked, &stats.Emergency)
	if err != nil {
		return nil, fmt.Errorf("querying audit stats: %w", err)
	}
	return &stats, nil
}
