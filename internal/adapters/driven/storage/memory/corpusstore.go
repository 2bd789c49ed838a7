// Package memory provides in-memory implementations of driven ports for testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
)

// Ensure CorpusStore implements the interface.
var _ driven.CorpusStore = (*CorpusStore)(nil)

// CorpusStore is an in-memory implementation of driven.CorpusStore.
// Search is naive substring matching per term; ranking is by match count.
// It exists for service-level tests, not production use.
type CorpusStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
	nextID    int64
}

// NewCorpusStore creates a new in-memory corpus store.
func NewCorpusStore() *CorpusStore {
	return &CorpusStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		nextID:    1,
	}
}

// SaveDocument stores or updates a document.
func (s *CorpusStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *CorpusStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents ordered by title.
func (s *CorpusStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Title < docs[j].Title })
	return docs, nil
}

// DeleteDocument removes a document and its chunks.
func (s *CorpusStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// SaveChunks stores chunks for a document, assigning sequential IDs.
func (s *CorpusStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	docID := chunks[0].DocID
	for i := range chunks {
		if chunks[i].ID == 0 {
			chunks[i].ID = s.nextID
			s.nextID++
		}
	}
	s.chunks[docID] = append(s.chunks[docID], chunks...)
	sort.Slice(s.chunks[docID], func(i, j int) bool {
		return s.chunks[docID][i].StartOffset < s.chunks[docID][j].StartOffset
	})
	return nil
}

// ChunksInRange returns chunks intersecting [start, end), ordered by start.
func (s *CorpusStore) ChunksInRange(_ context.Context, docID string, start, end int) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Chunk
	for _, chunk := range s.chunks[docID] {
		if chunk.Intersects(start, end) {
			result = append(result, chunk)
		}
	}
	return result, nil
}

// ChunksFrom returns chunks with end offset greater than after, ordered by start.
func (s *CorpusStore) ChunksFrom(_ context.Context, docID string, after int) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Chunk
	for _, chunk := range s.chunks[docID] {
		if chunk.EndOffset > after {
			result = append(result, chunk)
		}
	}
	return result, nil
}

// Search matches query terms against chunk text, case-insensitively.
// More matching terms ranks higher; scores are negative to mirror FTS5.
func (s *CorpusStore) Search(_ context.Context, query string, limit int) ([]domain.SearchHit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.SearchHit
	for docID, chunks := range s.chunks {
		doc := s.documents[docID]
		for _, chunk := range chunks {
			lower := strings.ToLower(chunk.Text)
			matched := 0
			for _, term := range terms {
				if strings.Contains(lower, term) {
					matched++
				}
			}
			if matched == 0 {
				continue
			}
			hits = append(hits, domain.SearchHit{
				ChunkID:  chunk.ID,
				DocID:    docID,
				DocTitle: doc.Title,
				Text:     chunk.Text,
				Location: domain.Location{
					StartOffset: chunk.StartOffset,
					EndOffset:   chunk.EndOffset,
					PageNumber:  chunk.PrimaryPage(),
				},
				Score: -float64(matched),
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score < hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Stats reports corpus-wide counts.
func (s *CorpusStore) Stats(_ context.Context) (*domain.CorpusStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &domain.CorpusStats{Documents: len(s.documents)}
	for _, chunks := range s.chunks {
		stats.Chunks += len(chunks)
	}
	return stats, nil
}

// Close is a no-op.
func (s *CorpusStore) Close() error {
	return nil
}
