package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// VectorStore persists chunk vectors with their metadata and serves
// filtered similarity search.
//
// Implementations must guarantee that DeleteByDocument removes every chunk
// for the document before returning, and that a concurrent Search never
// observes a half-deleted document: all of its chunks are visible, or none.
type VectorStore interface {
	// Upsert stores chunks with their embeddings. Re-upserting the same
	// chunk ID overwrites rather than duplicates.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// Search returns the k nearest chunks to the query vector, ranked by
	// cosine similarity with ties broken by chunk index. A nil scope is
	// unrestricted; an empty non-nil scope matches nothing.
	Search(ctx context.Context, query []float32, scope []string, k int) ([]SearchHit, error)

	// DeleteByDocument removes every chunk owned by the document and
	// returns the number removed.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// Count returns the total number of stored chunks.
	Count(ctx context.Context) (int, error)

	// DocumentStats aggregates stored chunk counts per document. Used to
	// seed the registry from chunks indexed out-of-band.
	DocumentStats(ctx context.Context) (map[string]domain.ChunkCounts, error)

	// Close releases resources.
	Close() error
}

// SearchHit is one similarity search result.
type SearchHit struct {
	// Chunk is the matched chunk, including its stored metadata.
	Chunk domain.Chunk

	// Score is the cosine similarity in [0, 1].
	Score float64
}
