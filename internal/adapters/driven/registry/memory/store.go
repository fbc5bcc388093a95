// Package memory provides an in-memory registry store for tests and
// ephemeral runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RegistryStore = (*Store)(nil)

// Store keeps document records in memory, indexed by ID and content hash.
type Store struct {
	mu     sync.RWMutex
	byID   map[string]domain.Document
	byHash map[string]string
}

// NewStore creates an empty in-memory registry store.
func NewStore() *Store {
	return &Store{
		byID:   make(map[string]domain.Document),
		byHash: make(map[string]string),
	}
}

// Save stores or updates a document record.
func (s *Store) Save(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[doc.ID]; ok && old.ContentHash != doc.ContentHash {
		delete(s.byHash, old.ContentHash)
	}
	s.byID[doc.ID] = doc
	s.byHash[doc.ContentHash] = doc.ID
	return nil
}

// Get retrieves a document by ID.
func (s *Store) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetByHash retrieves a document by content hash.
func (s *Store) GetByHash(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := s.byID[id]
	return &doc, nil
}

// List returns all documents ordered by creation time, then ID.
func (s *Store) List(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.byID))
	for _, doc := range s.byID {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// Delete removes a document record. Deleting an absent ID is a no-op.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.byID[id]; ok {
		delete(s.byHash, doc.ContentHash)
		delete(s.byID, id)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
