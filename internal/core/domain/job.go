package domain

import "time"

// JobStatus describes the state of one indexing job.
type JobStatus string

// Indexing job states.
const (
	// JobPending means the job is created but the pipeline has not started.
	JobPending JobStatus = "pending"

	// JobRunning means a pipeline stage is in progress.
	JobRunning JobStatus = "running"

	// JobDone means indexing finished, either freshly or via deduplication.
	JobDone JobStatus = "done"

	// JobError means a stage failed. Err carries the message.
	JobError JobStatus = "error"
)

// IsTerminal returns true once the job will not change again.
func (s JobStatus) IsTerminal() bool {
	return s == JobDone || s == JobError
}

// Job tracks one background indexing run. Jobs live in process memory only:
// they are created per upload, polled by the caller and never persisted.
type Job struct {
	// ID is the unique job identifier.
	ID string

	// Filename is the uploaded file name.
	Filename string

	// Status is the current job state.
	Status JobStatus

	// Progress advances monotonically from 0 to 1 across stages.
	Progress float64

	// Stage is a human-readable label for the current pipeline stage.
	Stage string

	// DocumentID is set once the content hash has been resolved.
	DocumentID string

	// Counts holds chunk counts once indexing completes.
	Counts ChunkCounts

	// AlreadyIndexed is true when the upload deduplicated against an
	// existing document and no pipeline stages ran.
	AlreadyIndexed bool

	// Err holds the terminal error message when Status is JobError.
	Err string

	// CreatedAt is when the job was admitted.
	CreatedAt time.Time
}
