package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// RegistryStore is the durable key-value mapping behind the document
// registry: documents keyed by ID, with a secondary index on content hash
// for O(1) dedup lookup. Backed by SQLite.
type RegistryStore interface {
	// Save stores or updates a document record.
	Save(ctx context.Context, doc domain.Document) error

	// Get retrieves a document by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetByHash retrieves a document by content hash.
	// Returns domain.ErrNotFound if absent.
	GetByHash(ctx context.Context, hash string) (*domain.Document, error)

	// List returns all documents ordered by creation time, then ID.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document record. Deleting an absent ID is a no-op.
	Delete(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
