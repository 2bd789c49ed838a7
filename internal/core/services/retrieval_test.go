package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campfire-labs/campfire/internal/adapters/driven/storage/memory"
	"github.com/campfire-labs/campfire/internal/core/domain"
)

// seedRetrievalStore builds a document whose text is sliced into chunks that
// overlap by 20 bytes, mirroring real chunker output.
func seedRetrievalStore(t *testing.T) (*memory.CorpusStore, string) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewCorpusStore()

	text := strings.Repeat("abcdefghij", 30) // 300 bytes
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1", Title: "Test Doc"}))

	var chunks []domain.Chunk
	for i, start := 0, 0; start < len(text); i, start = i+1, start+80 {
		end := min(start+100, len(text))
		chunks = append(chunks, domain.Chunk{
			DocID:       "doc-1",
			StartOffset: start,
			EndOffset:   end,
			Index:       i,
			Text:        text[start:end],
		})
		if end == len(text) {
			break
		}
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))
	return store, text
}

func TestRetrievalService_Search_EmptyQuery(t *testing.T) {
	store, _ := seedRetrievalStore(t)
	svc := NewRetrievalService(store)

	result, err := svc.Search(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, result.Results)

	// Empty result sets serialize as [], never null.
	assert.NotNil(t, result.Results)
	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"results":[]`)
}

func TestRetrievalService_Search_Snippets(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCorpusStore()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1", Title: "Burns"}))

	long := strings.Repeat("padding words before the match ", 10) +
		"tourniquet placement guidance " +
		strings.Repeat("padding words after the match ", 10)
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{DocID: "doc-1", StartOffset: 0, EndOffset: len(long), Index: 0, Text: long},
	}))

	svc := NewRetrievalService(store)
	result, err := svc.Search(ctx, "tourniquet", 5)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)

	snippet := result.Results[0].Snippet
	assert.Contains(t, snippet, "tourniquet")
	assert.LessOrEqual(t, len(snippet), snippetLength+6) // ellipses either side
	assert.True(t, strings.HasPrefix(snippet, "..."))
	assert.True(t, strings.HasSuffix(snippet, "..."))
	// Word alignment: no partial word after the leading ellipsis.
	body := strings.TrimPrefix(snippet, "...")
	assert.NotEqual(t, "", body)
}

func TestRetrievalService_Open_RoundTrip(t *testing.T) {
	store, text := seedRetrievalStore(t)
	svc := NewRetrievalService(store)
	ctx := context.Background()

	// Opening any stored chunk's exact range returns its text verbatim.
	chunks, err := store.ChunksFrom(ctx, "doc-1", 0)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, chunk := range chunks {
		result, err := svc.Open(ctx, "doc-1", chunk.StartOffset, chunk.EndOffset)
		require.NoError(t, err)
		assert.Empty(t, result.Status)
		assert.Equal(t, chunk.Text, result.Text, "chunk [%d,%d)", chunk.StartOffset, chunk.EndOffset)
		assert.Equal(t, chunk.StartOffset, result.ActualStart)
		assert.Equal(t, chunk.EndOffset, result.ActualEnd)
	}

	// Opening a range spanning overlapping chunks must not duplicate the
	// overlap region.
	result, err := svc.Open(ctx, "doc-1", 0, 300)
	require.NoError(t, err)
	assert.Equal(t, text, result.Text)
	assert.Equal(t, 0, result.ActualStart)
	assert.Equal(t, 300, result.ActualEnd)
}

func TestRetrievalService_Open_PartialRange(t *testing.T) {
	store, text := seedRetrievalStore(t)
	svc := NewRetrievalService(store)

	result, err := svc.Open(context.Background(), "doc-1", 50, 130)
	require.NoError(t, err)
	assert.Equal(t, text[50:130], result.Text)
	assert.Equal(t, 50, result.ActualStart)
	assert.Equal(t, 130, result.ActualEnd)
}

func TestRetrievalService_Open_GapMarker(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCorpusStore()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1", Title: "Gappy"}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{DocID: "doc-1", StartOffset: 0, EndOffset: 10, Index: 0, Text: "aaaaaaaaaa"},
		{DocID: "doc-1", StartOffset: 50, EndOffset: 60, Index: 1, Text: "bbbbbbbbbb"},
	}))

	svc := NewRetrievalService(store)
	result, err := svc.Open(ctx, "doc-1", 0, 60)
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaa"+gapMarker+"bbbbbbbbbb", result.Text)
	assert.Equal(t, 0, result.ActualStart)
	assert.Equal(t, 60, result.ActualEnd)
}

func TestRetrievalService_Open_Errors(t *testing.T) {
	store, _ := seedRetrievalStore(t)
	svc := NewRetrievalService(store)
	ctx := context.Background()

	t.Run("document not found", func(t *testing.T) {
		result, err := svc.Open(ctx, "missing", 0, 100)
		require.NoError(t, err)
		assert.Equal(t, statusDocumentNotFound, result.Status)
		assert.Empty(t, result.Text)
	})

	t.Run("range beyond document", func(t *testing.T) {
		result, err := svc.Open(ctx, "doc-1", 5000, 6000)
		require.NoError(t, err)
		assert.Equal(t, statusNoContentInRange, result.Status)
		assert.Empty(t, result.Text)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := svc.Open(ctx, "doc-1", 100, 50)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRetrievalService_Find(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCorpusStore()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1", Title: "Doc"}))

	// Three consecutive chunks with "marker" at known positions.
	mk := func(width int, at ...int) string {
		b := []byte(strings.Repeat("x", width))
		for _, p := range at {
			copy(b[p:], "marker")
		}
		return string(b)
	}
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{DocID: "doc-1", StartOffset: 0, EndOffset: 100, Index: 0, Text: mk(100, 10, 70)},
		{DocID: "doc-1", StartOffset: 100, EndOffset: 200, Index: 1, Text: mk(100, 20)},
		{DocID: "doc-1", StartOffset: 200, EndOffset: 300, Index: 2, Text: mk(100, 40)},
	}))

	svc := NewRetrievalService(store)

	t.Run("after filters earlier matches", func(t *testing.T) {
		result, err := svc.Find(ctx, "doc-1", "marker", 50)
		require.NoError(t, err)
		require.Len(t, result.Matches, 3)

		positions := []int{result.Matches[0].Position, result.Matches[1].Position, result.Matches[2].Position}
		assert.Equal(t, []int{70, 120, 240}, positions)
		for _, m := range result.Matches {
			assert.GreaterOrEqual(t, m.Position, 50)
			assert.Equal(t, "marker", m.Text)
			assert.Contains(t, m.Context, "marker")
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		result, err := svc.Find(ctx, "doc-1", "MARKER", 0)
		require.NoError(t, err)
		assert.Len(t, result.Matches, 4)
	})

	t.Run("regex metacharacters are literal", func(t *testing.T) {
		result, err := svc.Find(ctx, "doc-1", "mark.r", 0)
		require.NoError(t, err)
		assert.Empty(t, result.Matches)
	})

	t.Run("document not found", func(t *testing.T) {
		result, err := svc.Find(ctx, "missing", "marker", 0)
		require.NoError(t, err)
		assert.Equal(t, statusDocumentNotFound, result.Status)
		assert.Empty(t, result.Matches)
	})

	t.Run("empty pattern", func(t *testing.T) {
		result, err := svc.Find(ctx, "doc-1", "", 0)
		require.NoError(t, err)
		assert.Empty(t, result.Matches)
	})
}

func TestRetrievalService_Find_DedupesOverlapMatches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCorpusStore()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1", Title: "Doc"}))

	// Overlapping chunks: "marker" at document position 90 appears in both.
	text := strings.Repeat("x", 90) + "marker" + strings.Repeat("x", 54) // 150 bytes
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{DocID: "doc-1", StartOffset: 0, EndOffset: 100, Index: 0, Text: text[0:100]},
		{DocID: "doc-1", StartOffset: 80, EndOffset: 150, Index: 1, Text: text[80:150]},
	}))

	svc := NewRetrievalService(store)
	result, err := svc.Find(ctx, "doc-1", "marker", 0)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, 90, result.Matches[0].Position)
}

func TestMakeSnippet(t *testing.T) {
	t.Run("short text returned whole", func(t *testing.T) {
		assert.Equal(t, "short text", makeSnippet("  short text  ", "anything", 200))
	})

	t.Run("centred on first term", func(t *testing.T) {
		text := strings.Repeat("a ", 200) + "needle " + strings.Repeat("b ", 200)
		snippet := makeSnippet(text, "needle", 100)
		assert.Contains(t, snippet, "needle")
	})

	t.Run("no term present starts at beginning", func(t *testing.T) {
		text := strings.Repeat("word ", 100)
		snippet := makeSnippet(text, "absent", 50)
		assert.True(t, strings.HasSuffix(snippet, "..."))
		assert.False(t, strings.HasPrefix(snippet, "..."))
	})
}
