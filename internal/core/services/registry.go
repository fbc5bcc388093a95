package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Registry is the single source of truth for which documents exist.
//
// All document mutation goes through this type: the orchestrator resolves
// and transitions records here, nothing else writes document state. The
// resolve path is serialised so two concurrent uploads of identical bytes
// cannot both allocate a record; the loser observes the winner's record
// and reports it as existing.
type Registry struct {
	store       driven.RegistryStore
	vectorStore driven.VectorStore

	// resolveMu serialises hash lookup + create so concurrent identical
	// uploads cannot race past each other.
	resolveMu sync.Mutex
}

// NewRegistry creates a registry over a durable store. The vector store is
// used for cascading chunk deletion and startup seeding.
func NewRegistry(store driven.RegistryStore, vectorStore driven.VectorStore) *Registry {
	return &Registry{
		store:       store,
		vectorStore: vectorStore,
	}
}

// Resolve maps raw file bytes to a document record. If a document with the
// same content hash exists it is returned with existing=true and nothing
// is written. Otherwise a new record is allocated in pending state.
func (r *Registry) Resolve(ctx context.Context, data []byte, filename string) (*domain.Document, bool, error) {
	hash := domain.ContentHash(data)

	r.resolveMu.Lock()
	defer r.resolveMu.Unlock()

	existing, err := r.store.GetByHash(ctx, hash)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup by hash: %w", err)
	}

	now := time.Now().UTC()
	doc := domain.Document{
		ID:          domain.DocumentIDFromHash(hash),
		ContentHash: hash,
		Filename:    filename,
		Title:       titleFromFilename(filename),
		Status:      domain.DocumentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.store.Save(ctx, doc); err != nil {
		return nil, false, fmt.Errorf("save document: %w", err)
	}
	return &doc, false, nil
}

// MarkIndexing transitions a document to the indexing state.
func (r *Registry) MarkIndexing(ctx context.Context, id string) error {
	return r.transition(ctx, id, func(doc *domain.Document) {
		doc.Status = domain.DocumentIndexing
		doc.Error = ""
	})
}

// MarkIndexed transitions a document to indexed and records its chunk
// counts. Called exactly once per successful indexing run. The hash→id
// mapping is already durable at this point, so a concurrent upload of the
// same bytes resolves to this document before or at the moment the job
// completes.
func (r *Registry) MarkIndexed(ctx context.Context, id string, title string, counts domain.ChunkCounts) error {
	return r.transition(ctx, id, func(doc *domain.Document) {
		doc.Status = domain.DocumentIndexed
		doc.Counts = counts
		doc.Error = ""
		if title != "" {
			doc.Title = title
		}
	})
}

// MarkFailed transitions a document to failed. The record stays listed so
// the failure can be inspected, retried with a fresh upload, or deleted.
func (r *Registry) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.transition(ctx, id, func(doc *domain.Document) {
		doc.Status = domain.DocumentFailed
		doc.Error = reason
	})
}

func (r *Registry) transition(ctx context.Context, id string, mutate func(*domain.Document)) error {
	doc, err := r.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get document %s: %w", id, err)
	}
	mutate(doc)
	doc.UpdatedAt = time.Now().UTC()
	if err := r.store.Save(ctx, *doc); err != nil {
		return fmt.Errorf("save document %s: %w", id, err)
	}
	return nil
}

// Get returns one document record.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Document, error) {
	return r.store.Get(ctx, id)
}

// List returns all documents ordered by creation time, then ID.
func (r *Registry) List(ctx context.Context) ([]domain.Document, error) {
	docs, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// Delete removes a document and purges its chunks from the vector store.
//
// The purge runs first. If it fails, the record is marked failed instead
// of removed, so a later delete can retry; the document is never left
// listed as indexed with missing chunks.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.store.Get(ctx, id); err != nil {
		return err
	}

	removed, err := r.vectorStore.DeleteByDocument(ctx, id)
	if err != nil {
		if markErr := r.MarkFailed(ctx, id, fmt.Sprintf("chunk purge failed: %v", err)); markErr != nil {
			logger.Error("marking document %s failed after purge error: %v", id, markErr)
		}
		return fmt.Errorf("purge chunks for %s: %w", id, err)
	}
	logger.Debug("Purged %d chunks for document %s", removed, id)

	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// SeedFromVectorStore creates indexed records for documents whose chunks
// are present in the vector store but missing from the registry, so
// out-of-band indexed content appears in listings. Returns the number of
// records added.
func (r *Registry) SeedFromVectorStore(ctx context.Context) (int, error) {
	stats, err := r.vectorStore.DocumentStats(ctx)
	if err != nil {
		return 0, fmt.Errorf("vector store stats: %w", err)
	}

	added := 0
	now := time.Now().UTC()
	for docID, counts := range stats {
		if _, err := r.store.Get(ctx, docID); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return added, err
		}
		doc := domain.Document{
			ID:        docID,
			Filename:  "(imported)",
			Title:     "(imported)",
			Status:    domain.DocumentIndexed,
			Counts:    counts,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := r.store.Save(ctx, doc); err != nil {
			return added, fmt.Errorf("seed document %s: %w", docID, err)
		}
		added++
	}
	if added > 0 {
		logger.Info("Registry: seeded %d documents from the vector store", added)
	}
	return added, nil
}

// titleFromFilename strips the extension to form a fallback title.
func titleFromFilename(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		return filename[:idx]
	}
	return filename
}
