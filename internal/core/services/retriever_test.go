package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	registrymem "github.com/custodia-labs/docquery/internal/adapters/driven/registry/memory"
	vectormem "github.com/custodia-labs/docquery/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

type retrieverFixture struct {
	retriever *Retriever
	embedding *mockEmbeddingService
	docA      string
	docB      string
}

// newRetrieverFixture indexes chunks across two documents with orthogonal
// embeddings so similarity ordering is predictable.
func newRetrieverFixture(t *testing.T) *retrieverFixture {
	t.Helper()
	ctx := context.Background()

	vectorStore := vectormem.NewStore()
	registry := NewRegistry(registrymem.NewStore(), vectorStore)

	docA, _, err := registry.Resolve(ctx, []byte("%PDF-1.7 doc a"), "alpha.pdf")
	require.NoError(t, err)
	docB, _, err := registry.Resolve(ctx, []byte("%PDF-1.7 doc b"), "beta.pdf")
	require.NoError(t, err)
	require.NoError(t, registry.MarkIndexed(ctx, docA.ID, "Alpha", domain.ChunkCounts{Text: 2}))
	require.NoError(t, registry.MarkIndexed(ctx, docB.ID, "Beta", domain.ChunkCounts{Text: 1, Table: 1}))

	require.NoError(t, vectorStore.Upsert(ctx, []domain.Chunk{
		{ID: "a1", DocumentID: docA.ID, ContentType: domain.ContentText, Text: "revenue grew", Index: 0, Embedding: []float32{1, 0, 0}},
		{ID: "a2", DocumentID: docA.ID, ContentType: domain.ContentText, Text: "costs fell", Index: 1, Embedding: []float32{0.9, 0.1, 0}},
		{ID: "b1", DocumentID: docB.ID, ContentType: domain.ContentText, Text: "unrelated prose", Index: 0, Embedding: []float32{0, 1, 0}},
		{ID: "b2", DocumentID: docB.ID, ContentType: domain.ContentTable, Text: "Table:\nQ1 | 100", Index: 1, Embedding: []float32{0.8, 0.2, 0}},
	}))

	embedding := newMockEmbeddingService()
	embedding.fallback = []float32{1, 0, 0}

	fix := &retrieverFixture{
		retriever: NewRetriever(NewEmbeddingGateway(embedding), vectorStore, registry),
		embedding: embedding,
	}
	fix.docA = docA.ID
	fix.docB = docB.ID
	return fix
}

func TestRetriever_Retrieve_RanksBySimilarity(t *testing.T) {
	fix := newRetrieverFixture(t)

	sources, err := fix.retriever.Retrieve(context.Background(), "how did revenue change?", driving.QueryOptions{TopK: 3})
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, "a1", sources[0].Chunk.ID)
	assert.GreaterOrEqual(t, sources[0].Score, sources[1].Score)
	assert.GreaterOrEqual(t, sources[1].Score, sources[2].Score)
	// Hydrated with document metadata for citations.
	assert.Equal(t, "alpha.pdf", sources[0].Filename)
	assert.Equal(t, "Alpha", sources[0].Title)
}

func TestRetriever_Retrieve_EmptyQuestion(t *testing.T) {
	fix := newRetrieverFixture(t)

	_, err := fix.retriever.Retrieve(context.Background(), "   ", driving.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetriever_Retrieve_ScopeSemantics(t *testing.T) {
	fix := newRetrieverFixture(t)
	ctx := context.Background()

	t.Run("nil scope searches everything", func(t *testing.T) {
		sources, err := fix.retriever.Retrieve(ctx, "question", driving.QueryOptions{TopK: 10})
		require.NoError(t, err)
		assert.Len(t, sources, 4)
	})

	t.Run("empty non-nil scope returns nothing", func(t *testing.T) {
		sources, err := fix.retriever.Retrieve(ctx, "question", driving.QueryOptions{
			DocumentIDs: []string{},
			TopK:        10,
		})
		require.NoError(t, err)
		assert.Empty(t, sources)
	})

	t.Run("scoped search stays inside the scope", func(t *testing.T) {
		sources, err := fix.retriever.Retrieve(ctx, "question", driving.QueryOptions{
			DocumentIDs: []string{fix.docB},
			TopK:        10,
		})
		require.NoError(t, err)
		require.Len(t, sources, 2)
		for _, s := range sources {
			assert.Equal(t, fix.docB, s.Chunk.DocumentID)
		}
	})
}

func TestRetriever_Retrieve_MinScoreFilters(t *testing.T) {
	fix := newRetrieverFixture(t)

	sources, err := fix.retriever.Retrieve(context.Background(), "question", driving.QueryOptions{
		TopK:     10,
		MinScore: 0.5,
	})
	require.NoError(t, err)

	// The orthogonal chunk (score 0) is dropped.
	require.NotEmpty(t, sources)
	for _, s := range sources {
		assert.GreaterOrEqual(t, s.Score, 0.5)
		assert.NotEqual(t, "b1", s.Chunk.ID)
	}
}

func TestRetriever_Retrieve_ContentTypeFilter(t *testing.T) {
	fix := newRetrieverFixture(t)

	sources, err := fix.retriever.Retrieve(context.Background(), "question", driving.QueryOptions{
		TopK:        2,
		ContentType: "table",
	})
	require.NoError(t, err)

	require.Len(t, sources, 1)
	assert.Equal(t, "b2", sources[0].Chunk.ID)
}

func TestRetriever_Retrieve_DefaultTopK(t *testing.T) {
	fix := newRetrieverFixture(t)

	sources, err := fix.retriever.Retrieve(context.Background(), "question", driving.QueryOptions{})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(sources), DefaultTopK)
}

func TestRetriever_Reranker(t *testing.T) {
	fix := newRetrieverFixture(t)
	fix.retriever.SetReranker(func(_ string, sources []domain.RetrievedSource) []domain.RetrievedSource {
		// Reverse order to prove the hook runs.
		out := make([]domain.RetrievedSource, len(sources))
		for i, s := range sources {
			out[len(sources)-1-i] = s
		}
		return out
	})

	sources, err := fix.retriever.Retrieve(context.Background(), "question", driving.QueryOptions{TopK: 2})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "a2", sources[0].Chunk.ID)
	assert.Equal(t, "a1", sources[1].Chunk.ID)
}
