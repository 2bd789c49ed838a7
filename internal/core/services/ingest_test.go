package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfire-labs/campfire/internal/adapters/driven/storage/memory"
	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
)

// fileExtractor reads whole files as a single pageless segment.
type fileExtractor struct{}

var _ driven.Extractor = (*fileExtractor)(nil)

func (fileExtractor) Extract(_ context.Context, path string) ([]domain.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []domain.Segment{{Text: string(data), StartOffset: 0, EndOffset: len(data)}}, nil
}

func (fileExtractor) Supports(ext string) bool { return ext == ".txt" }

// failingChunkStore rejects every chunk write.
type failingChunkStore struct {
	*memory.CorpusStore
	deleted []string
}

func (s *failingChunkStore) SaveChunks(context.Context, []domain.Chunk) error {
	return errors.New("disk full")
}

func (s *failingChunkStore) DeleteDocument(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return s.CorpusStore.DeleteDocument(ctx, id)
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestIngest(store driven.CorpusStore) *IngestService {
	return NewIngestService(store, []driven.Extractor{fileExtractor{}}, nil)
}

func TestIngestService_IngestFile(t *testing.T) {
	store := memory.NewCorpusStore()
	svc := newTestIngest(store)
	ctx := context.Background()

	content := strings.Repeat("Press firmly on the wound. ", 100)
	path := writeTestFile(t, t.TempDir(), "first-aid.txt", content)

	report, err := svc.IngestFile(ctx, path, "", "First Aid Guidelines")
	require.NoError(t, err)

	assert.NotEmpty(t, report.DocID)
	assert.Equal(t, "First Aid Guidelines", report.Title)
	assert.Equal(t, path, report.Path)
	assert.Greater(t, report.Chunks, 1)
	assert.Equal(t, len(content), report.Bytes)

	doc, err := store.GetDocument(ctx, report.DocID)
	require.NoError(t, err)
	assert.Equal(t, "First Aid Guidelines", doc.Title)

	chunks, err := store.ChunksFrom(ctx, report.DocID, 0)
	require.NoError(t, err)
	assert.Len(t, chunks, report.Chunks)
}

func TestIngestService_IngestFile_DefaultTitle(t *testing.T) {
	svc := newTestIngest(memory.NewCorpusStore())
	path := writeTestFile(t, t.TempDir(), "storm-safety.txt", "Stay indoors during the storm.")

	report, err := svc.IngestFile(context.Background(), path, "", "")
	require.NoError(t, err)
	assert.Equal(t, "storm-safety", report.Title)
}

func TestIngestService_IngestFile_DuplicateDocIDSkipped(t *testing.T) {
	store := memory.NewCorpusStore()
	svc := newTestIngest(store)
	ctx := context.Background()

	path := writeTestFile(t, t.TempDir(), "guidelines.txt", strings.Repeat("Cool the burn under running water. ", 40))

	first, err := svc.IngestFile(ctx, path, "ifrc-2020", "First Aid Guidelines")
	require.NoError(t, err)
	assert.Equal(t, "ifrc-2020", first.DocID)
	assert.False(t, first.Skipped)

	chunks, err := store.ChunksFrom(ctx, "ifrc-2020", 0)
	require.NoError(t, err)
	indexed := len(chunks)

	second, err := svc.IngestFile(ctx, path, "ifrc-2020", "Renamed")
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, "ifrc-2020", second.DocID)
	// The skipped report carries the stored title, not the new argument.
	assert.Equal(t, "First Aid Guidelines", second.Title)
	assert.Zero(t, second.Chunks)

	// Nothing was re-indexed.
	chunks, err = store.ChunksFrom(ctx, "ifrc-2020", 0)
	require.NoError(t, err)
	assert.Len(t, chunks, indexed)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngestService_IngestFile_UnsupportedType(t *testing.T) {
	svc := newTestIngest(memory.NewCorpusStore())
	path := writeTestFile(t, t.TempDir(), "guide.pdf", "%PDF-1.4")

	_, err := svc.IngestFile(context.Background(), path, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestService_IngestFile_EmptyFile(t *testing.T) {
	svc := newTestIngest(memory.NewCorpusStore())
	path := writeTestFile(t, t.TempDir(), "empty.txt", "")

	_, err := svc.IngestFile(context.Background(), path, "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestService_IngestFile_RollsBackOnChunkFailure(t *testing.T) {
	store := &failingChunkStore{CorpusStore: memory.NewCorpusStore()}
	svc := NewIngestService(store, []driven.Extractor{fileExtractor{}}, nil)
	ctx := context.Background()

	path := writeTestFile(t, t.TempDir(), "doc.txt", "Some guidance text.")

	_, err := svc.IngestFile(ctx, path, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// The document written before the chunk failure must be gone.
	require.Len(t, store.deleted, 1)
	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestService_IngestDir(t *testing.T) {
	store := memory.NewCorpusStore()
	svc := newTestIngest(store)
	ctx := context.Background()

	dir := t.TempDir()
	writeTestFile(t, dir, "burns.txt", "Cool the burn under running water.")
	writeTestFile(t, dir, "bleeding.txt", "Apply direct pressure to the wound.")
	writeTestFile(t, dir, "notes.md", "ignored")
	writeTestFile(t, dir, "empty.txt", "")

	reports, err := svc.IngestDir(ctx, dir)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	// Walk order is deterministic: bleeding, burns, empty.
	assert.Equal(t, "bleeding", reports[0].Title)
	assert.Empty(t, reports[0].Err)
	assert.Equal(t, "burns", reports[1].Title)
	assert.Empty(t, reports[1].Err)
	assert.NotEmpty(t, reports[2].Err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
}

func TestIngestService_Validate(t *testing.T) {
	store := memory.NewCorpusStore()
	svc := newTestIngest(store)
	ctx := context.Background()

	content := strings.Repeat("Keep the person warm and calm. ", 80)
	path := writeTestFile(t, t.TempDir(), "doc.txt", content)
	report, err := svc.IngestFile(ctx, path, "", "")
	require.NoError(t, err)

	assert.NoError(t, svc.Validate(ctx, report.DocID))
	assert.ErrorIs(t, svc.Validate(ctx, "missing"), domain.ErrNotFound)

	t.Run("detects gaps", func(t *testing.T) {
		require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "gappy", Title: "Gappy"}))
		require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
			{DocID: "gappy", Index: 0, StartOffset: 0, EndOffset: 10, Text: "aaaaaaaaaa"},
			{DocID: "gappy", Index: 1, StartOffset: 500, EndOffset: 510, Text: "bbbbbbbbbb"},
		}))
		assert.ErrorIs(t, svc.Validate(ctx, "gappy"), domain.ErrInvalidInput)
	})
}

func TestIngestService_Remove(t *testing.T) {
	store := memory.NewCorpusStore()
	svc := newTestIngest(store)
	ctx := context.Background()

	path := writeTestFile(t, t.TempDir(), "doc.txt", "Some guidance text.")
	report, err := svc.IngestFile(ctx, path, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, report.DocID))
	_, err = store.GetDocument(ctx, report.DocID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Remove(ctx, "missing"), domain.ErrNotFound)
}
