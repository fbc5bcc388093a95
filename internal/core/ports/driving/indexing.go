package driving

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// IndexingService admits PDF uploads and tracks their background jobs.
type IndexingService interface {
	// Submit validates the upload, creates a job and starts the indexing
	// pipeline in the background. It returns the job handle immediately;
	// input errors (non-PDF, empty file) are returned synchronously and
	// never become a job.
	Submit(ctx context.Context, data []byte, filename string) (*domain.Job, error)

	// Job returns a snapshot of one job's status. Polling is read-only;
	// the returned copy never mutates.
	Job(id string) (*domain.Job, bool)

	// Jobs returns snapshots of all jobs from this process lifetime,
	// newest first.
	Jobs() []*domain.Job

	// Wait blocks until the job reaches a terminal state or ctx is
	// cancelled, and returns the final snapshot.
	Wait(ctx context.Context, id string) (*domain.Job, error)
}

// DocumentService lists and deletes indexed documents.
type DocumentService interface {
	// List returns all known documents in stable order.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document and purges all of its chunks from the
	// vector store. Search never observes a half-deleted document.
	Delete(ctx context.Context, id string) error
}
