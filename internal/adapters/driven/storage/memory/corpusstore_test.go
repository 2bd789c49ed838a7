package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

func seedStore(t *testing.T) *CorpusStore {
	t.Helper()
	ctx := context.Background()
	store := NewCorpusStore()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1", Title: "First Aid"}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{DocID: "doc-1", StartOffset: 0, EndOffset: 100, Index: 0, Text: "apply pressure to stop bleeding"},
		{DocID: "doc-1", StartOffset: 100, EndOffset: 200, Index: 1, Text: "cool the burn with running water"},
	}))
	return store
}

func TestCorpusStore_DocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "First Aid", doc.Title)

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))
	_, err = store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.DeleteDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorpusStore_ChunkQueries(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	inRange, err := store.ChunksInRange(ctx, "doc-1", 50, 150)
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	from, err := store.ChunksFrom(ctx, "doc-1", 100)
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, 100, from[0].StartOffset)
}

func TestCorpusStore_Search(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)

	hits, err := store.Search(ctx, "bleeding", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-1", hits[0].DocID)
	assert.Negative(t, hits[0].Score)

	hits, err = store.Search(ctx, "", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCorpusStore_Stats(t *testing.T) {
	store := seedStore(t)
	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 2, stats.Chunks)
}
