// Package memory provides an in-memory vector store. It is the reference
// implementation of the store contract and the default for tests.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store keeps chunk vectors in process memory, grouped by document.
//
// All operations hold the store lock, so a search never observes a
// half-deleted document: DeleteByDocument removes the whole group under
// the write lock before any reader proceeds.
type Store struct {
	mu     sync.RWMutex
	chunks map[string][]domain.Chunk // keyed by document ID
}

// NewStore creates an empty in-memory vector store.
func NewStore() *Store {
	return &Store{
		chunks: make(map[string][]domain.Chunk),
	}
}

// Upsert stores chunks, overwriting any with the same ID.
func (s *Store) Upsert(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		existing := s.chunks[chunk.DocumentID]
		replaced := false
		for i := range existing {
			if existing[i].ID == chunk.ID {
				existing[i] = chunk
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, chunk)
		}
		s.chunks[chunk.DocumentID] = existing
	}
	return nil
}

// Search ranks all in-scope chunks by cosine similarity. Ties break on the
// chunk's document-order index, so ranking is stable.
func (s *Store) Search(_ context.Context, query []float32, scope []string, k int) ([]driven.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if scope != nil && len(scope) == 0 {
		return []driven.SearchHit{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	inScope := func(docID string) bool {
		if scope == nil {
			return true
		}
		for _, id := range scope {
			if id == docID {
				return true
			}
		}
		return false
	}

	var hits []driven.SearchHit
	for docID, chunks := range s.chunks {
		if !inScope(docID) {
			continue
		}
		for _, chunk := range chunks {
			hits = append(hits, driven.SearchHit{
				Chunk: chunk,
				Score: CosineSimilarity(query, chunk.Embedding),
			})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteByDocument removes every chunk for the document in one step.
func (s *Store) DeleteByDocument(_ context.Context, documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.chunks[documentID])
	delete(s.chunks, documentID)
	return removed, nil
}

// Count returns the total number of stored chunks.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, chunks := range s.chunks {
		total += len(chunks)
	}
	return total, nil
}

// DocumentStats aggregates chunk counts per document.
func (s *Store) DocumentStats(_ context.Context) (map[string]domain.ChunkCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make(map[string]domain.ChunkCounts, len(s.chunks))
	for docID, chunks := range s.chunks {
		var counts domain.ChunkCounts
		for _, chunk := range chunks {
			switch chunk.ContentType {
			case domain.ContentText:
				counts.Text++
			case domain.ContentTable:
				counts.Table++
			case domain.ContentImage:
				counts.Image++
			}
		}
		stats[docID] = counts
	}
	return stats, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// CosineSimilarity returns the cosine similarity of two vectors mapped
// into [0, 1]. Mismatched or zero-length vectors score zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp so scores satisfy the [0, 1] contract; embedding vectors are
	// effectively never anti-correlated.
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}
