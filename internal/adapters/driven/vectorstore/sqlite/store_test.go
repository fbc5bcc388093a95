package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func testChunk(id, docID string, index int, embedding []float32) domain.Chunk {
	return domain.Chunk{
		ID:          id,
		DocumentID:  docID,
		ContentType: domain.ContentText,
		Text:        "content of " + id,
		Heading:     "Heading",
		SectionPath: []string{"Heading"},
		Pages:       []int{1},
		Index:       index,
		Embedding:   embedding,
	}
}

func seedStore(t *testing.T, store *Store) {
	t.Helper()
	chunks := []domain.Chunk{
		testChunk("a1", "doc-a", 0, []float32{1, 0}),
		testChunk("a2", "doc-a", 1, []float32{0.6, 0.8}),
		testChunk("b1", "doc-b", 0, []float32{0, 1}),
	}
	require.NoError(t, store.Upsert(context.Background(), chunks))
}

func TestStore_UpsertAndCount(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	seedStore(t, store)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStore_UpsertOverwritesSameID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedStore(t, store)

	updated := testChunk("a1", "doc-a", 0, []float32{0, 1})
	updated.Text = "rewritten content"
	require.NoError(t, store.Upsert(ctx, []domain.Chunk{updated}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := store.Search(ctx, []float32{0, 1}, nil, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "rewritten content", hits[0].Chunk.Text)
}

func TestStore_UpsertEmptyIsNoOp(t *testing.T) {
	store := setupTestStore(t)

	assert.NoError(t, store.Upsert(context.Background(), nil))
}

func TestStore_SearchRanksByCosine(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedStore(t, store)

	hits, err := store.Search(ctx, []float32{1, 0}, nil, 3)

	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a1", hits[0].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "a2", hits[1].Chunk.ID)
	assert.InDelta(t, 0.6, hits[1].Score, 1e-6)
	assert.Equal(t, "b1", hits[2].Chunk.ID)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-6)
}

func TestStore_SearchRoundtripsChunkFields(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	chunk := domain.Chunk{
		ID:          "c1",
		DocumentID:  "doc-a",
		ContentType: domain.ContentTable,
		Text:        "Table:\nQ1 | 100",
		Heading:     "Results",
		SectionPath: []string{"Report", "Results"},
		Pages:       []int{4, 5},
		Index:       7,
		Embedding:   []float32{0.5, 0.5},
	}
	require.NoError(t, store.Upsert(ctx, []domain.Chunk{chunk}))

	hits, err := store.Search(ctx, []float32{0.5, 0.5}, nil, 1)

	require.NoError(t, err)
	require.Len(t, hits, 1)
	got := hits[0].Chunk
	assert.Equal(t, chunk.ID, got.ID)
	assert.Equal(t, chunk.DocumentID, got.DocumentID)
	assert.Equal(t, chunk.ContentType, got.ContentType)
	assert.Equal(t, chunk.Text, got.Text)
	assert.Equal(t, chunk.Heading, got.Heading)
	assert.Equal(t, chunk.SectionPath, got.SectionPath)
	assert.Equal(t, chunk.Pages, got.Pages)
	assert.Equal(t, chunk.Index, got.Index)
	assert.Equal(t, chunk.Embedding, got.Embedding)
}

func TestStore_SearchScope(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedStore(t, store)

	t.Run("nil scope searches everything", func(t *testing.T) {
		hits, err := store.Search(ctx, []float32{1, 0}, nil, 10)
		require.NoError(t, err)
		assert.Len(t, hits, 3)
	})

	t.Run("empty scope matches nothing", func(t *testing.T) {
		hits, err := store.Search(ctx, []float32{1, 0}, []string{}, 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("scoped search stays within documents", func(t *testing.T) {
		hits, err := store.Search(ctx, []float32{1, 0}, []string{"doc-b"}, 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "b1", hits[0].Chunk.ID)
	})
}

func TestStore_SearchLimitsToK(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedStore(t, store)

	hits, err := store.Search(ctx, []float32{1, 0}, nil, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = store.Search(ctx, []float32{1, 0}, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_DeleteByDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedStore(t, store)

	n, err := store.DeleteByDocument(ctx, "doc-a")

	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Second delete finds nothing.
	n, err = store.DeleteByDocument(ctx, "doc-a")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_DocumentStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	chunks := []domain.Chunk{
		testChunk("a1", "doc-a", 0, []float32{1, 0}),
		testChunk("a2", "doc-a", 1, []float32{0, 1}),
		testChunk("b1", "doc-b", 0, []float32{1, 0}),
	}
	table := testChunk("a3", "doc-a", 2, []float32{1, 1})
	table.ContentType = domain.ContentTable
	chunks = append(chunks, table)
	require.NoError(t, store.Upsert(ctx, chunks))

	stats, err := store.DocumentStats(ctx)

	require.NoError(t, err)
	assert.Equal(t, domain.ChunkCounts{Text: 2, Table: 1}, stats["doc-a"])
	assert.Equal(t, domain.ChunkCounts{Text: 1}, stats["doc-b"])
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []domain.Chunk{
		testChunk("a1", "doc-a", 0, []float32{1, 0}),
	}))
	require.NoError(t, store.Close())

	store, err = NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors score one", func(t *testing.T) {
		assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	})

	t.Run("orthogonal vectors score zero", func(t *testing.T) {
		assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("opposed vectors clamp to zero", func(t *testing.T) {
		assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	})

	t.Run("degenerate inputs score zero", func(t *testing.T) {
		assert.Zero(t, cosineSimilarity(nil, nil))
		assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
		assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	})
}
