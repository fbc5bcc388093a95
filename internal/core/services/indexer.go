package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docquery/internal/chunker"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexingService = (*Indexer)(nil)

// pdfMagic is the required file signature for uploads.
var pdfMagic = []byte("%PDF-")

// Pipeline progress checkpoints. Progress only ever moves forward.
const (
	progressStarting  = 0.05
	progressParsing   = 0.10
	progressCaptions  = 0.25
	progressChunking  = 0.55
	progressEmbedding = 0.70
	progressStoring   = 0.90
)

// jobPollInterval is how often Wait re-reads job state.
const jobPollInterval = 50 * time.Millisecond

// Indexer drives the parse → chunk → embed → store pipeline for uploads.
//
// Submission is non-blocking: the pipeline runs on its own goroutine and
// writes progress into the job table. Each job has exactly one writer (its
// pipeline goroutine); polling reads take a snapshot under a read lock.
// Jobs are process-lifetime only and are never persisted.
type Indexer struct {
	registry    *Registry
	parser      driven.DocumentParser
	captioner   driven.ImageCaptioner
	embedder    *EmbeddingGateway
	vectorStore driven.VectorStore
	chunker     *chunker.Chunker

	baseCtx context.Context
	cancel  context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]*domain.Job
	// order preserves admission order for listing.
	order []string
	// inflight maps a content hash to the completion signal of the
	// pipeline currently indexing it. Duplicate uploads wait on it and
	// adopt the outcome instead of running the pipeline again.
	inflight map[string]chan struct{}

	wg sync.WaitGroup
}

// NewIndexer creates the indexing orchestrator. The captioner is optional;
// when nil, images are skipped with a logged gap.
func NewIndexer(
	registry *Registry,
	parser driven.DocumentParser,
	captioner driven.ImageCaptioner,
	embedder *EmbeddingGateway,
	vectorStore driven.VectorStore,
	chunker *chunker.Chunker,
) *Indexer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		registry:    registry,
		parser:      parser,
		captioner:   captioner,
		embedder:    embedder,
		vectorStore: vectorStore,
		chunker:     chunker,
		baseCtx:     ctx,
		cancel:      cancel,
		jobs:        make(map[string]*domain.Job),
		inflight:    make(map[string]chan struct{}),
	}
}

// Close stops all running pipelines and waits for them to exit.
func (ix *Indexer) Close() {
	ix.cancel()
	ix.wg.Wait()
}

// Submit validates the upload and starts a background indexing job.
// Input errors are returned synchronously and never become a job.
func (ix *Indexer) Submit(_ context.Context, data []byte, filename string) (*domain.Job, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyDocument, filename)
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return nil, fmt.Errorf("%w: %s (only PDF is supported)", domain.ErrUnsupportedFileType, filename)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%w: %s is not a valid PDF", domain.ErrInvalidInput, filename)
	}

	job := &domain.Job{
		ID:        uuid.New().String(),
		Filename:  filename,
		Status:    domain.JobPending,
		Stage:     "Queued",
		CreatedAt: time.Now().UTC(),
	}

	ix.mu.Lock()
	ix.jobs[job.ID] = job
	ix.order = append(ix.order, job.ID)
	ix.mu.Unlock()

	ix.wg.Add(1)
	go func() {
		defer ix.wg.Done()
		// Decoupled from the submitting request: the pipeline outlives it.
		ix.run(ix.baseCtx, job.ID, data, filename)
	}()

	return snapshotJob(job), nil
}

// Job returns a point-in-time copy of one job's status.
func (ix *Indexer) Job(id string) (*domain.Job, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	job, ok := ix.jobs[id]
	if !ok {
		return nil, false
	}
	return snapshotJob(job), true
}

// Jobs returns copies of all jobs, newest first.
func (ix *Indexer) Jobs() []*domain.Job {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*domain.Job, 0, len(ix.order))
	for i := len(ix.order) - 1; i >= 0; i-- {
		out = append(out, snapshotJob(ix.jobs[ix.order[i]]))
	}
	return out
}

// Wait blocks until the job reaches a terminal state or ctx is cancelled.
func (ix *Indexer) Wait(ctx context.Context, id string) (*domain.Job, error) {
	ticker := time.NewTicker(jobPollInterval)
	defer ticker.Stop()
	for {
		job, ok := ix.Job(id)
		if !ok {
			return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
		}
		if job.Status.IsTerminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// update mutates a job under the write lock. The pipeline goroutine is the
// only caller for its job, so transitions stay single-writer.
func (ix *Indexer) update(id string, mutate func(*domain.Job)) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if job, ok := ix.jobs[id]; ok {
		mutate(job)
	}
}

// advance moves progress forward to at least p and sets the stage label.
func (ix *Indexer) advance(id string, p float64, stage string) {
	ix.update(id, func(job *domain.Job) {
		job.Status = domain.JobRunning
		if p > job.Progress {
			job.Progress = p
		}
		job.Stage = stage
	})
}

// fail records the terminal error on the job.
func (ix *Indexer) fail(id string, stage string, err error) {
	logger.Error("Indexing job %s failed at %s: %v", id, stage, err)
	ix.update(id, func(job *domain.Job) {
		job.Status = domain.JobError
		job.Progress = 1.0
		job.Stage = stage
		job.Err = err.Error()
	})
}

// claim registers a pipeline as the sole indexer for a content hash. When
// another pipeline already holds the hash, claim returns that pipeline's
// completion channel instead of a release func.
func (ix *Indexer) claim(hash string) (release func(), winner <-chan struct{}) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ch, ok := ix.inflight[hash]; ok {
		return nil, ch
	}
	ch := make(chan struct{})
	ix.inflight[hash] = ch
	return func() {
		ix.mu.Lock()
		delete(ix.inflight, hash)
		ix.mu.Unlock()
		close(ch)
	}, nil
}

// run executes the pipeline stages in strict sequence for one job.
func (ix *Indexer) run(ctx context.Context, jobID string, data []byte, filename string) {
	logger.Section("Indexing " + filename)
	ix.advance(jobID, progressStarting, "Starting")

	// One pipeline per content hash. A concurrent upload of identical
	// bytes waits for the pipeline that got there first, then resolves
	// against its outcome rather than indexing again.
	hash := domain.ContentHash(data)
	for {
		release, winner := ix.claim(hash)
		if release != nil {
			defer release()
			break
		}
		ix.advance(jobID, progressStarting, "Waiting for identical upload")
		select {
		case <-winner:
		case <-ctx.Done():
			ix.fail(jobID, "Waiting for identical upload", ctx.Err())
			return
		}
	}

	// Resolve identity: identical bytes must never re-run the pipeline.
	doc, existing, err := ix.registry.Resolve(ctx, data, filename)
	if err != nil {
		ix.fail(jobID, "Resolving document", err)
		return
	}
	ix.update(jobID, func(job *domain.Job) { job.DocumentID = doc.ID })

	if existing && doc.Status == domain.DocumentIndexed {
		logger.Info("'%s' already indexed as %s, skipping pipeline", filename, doc.ID)
		ix.update(jobID, func(job *domain.Job) {
			job.Status = domain.JobDone
			job.Progress = 1.0
			job.Stage = "Already indexed"
			job.Counts = doc.Counts
			job.AlreadyIndexed = true
		})
		return
	}
	if existing {
		// A failed or interrupted record with the same hash reruns in
		// full under the same document identity. A run that died between
		// upsert and its terminal transition may have published chunks;
		// purge them so the rerun cannot leave duplicates.
		if _, err := ix.vectorStore.DeleteByDocument(ctx, doc.ID); err != nil {
			ix.fail(jobID, "Resolving document", err)
			return
		}
	}

	if err := ix.registry.MarkIndexing(ctx, doc.ID); err != nil {
		ix.fail(jobID, "Resolving document", err)
		return
	}

	counts, indexErr := ix.index(ctx, jobID, doc.ID, data, filename)
	if indexErr != nil {
		ix.fail(jobID, stageLabel(indexErr), indexErr)
		if err := ix.registry.MarkFailed(ctx, doc.ID, indexErr.Error()); err != nil {
			logger.Error("Marking document %s failed: %v", doc.ID, err)
		}
		return
	}

	ix.update(jobID, func(job *domain.Job) {
		job.Status = domain.JobDone
		job.Progress = 1.0
		job.Stage = "Complete"
		job.Counts = counts
	})
	logger.Info("Indexed '%s' (%d chunks)", filename, counts.Total())
}

// index runs parse → caption → chunk → embed → store and returns the
// chunk counts. Chunks become visible to search only after the full embed
// pass succeeds.
func (ix *Indexer) index(ctx context.Context, jobID, docID string, data []byte, filename string) (domain.ChunkCounts, error) {
	var zero domain.ChunkCounts

	ix.advance(jobID, progressParsing, "Parsing PDF")
	parsed, err := ix.parser.Parse(ctx, data, filename)
	if err != nil {
		return zero, &stageError{stage: "Parsing PDF", err: err}
	}

	if n := parsed.ImageCount(); n > 0 && ix.captioner != nil {
		ix.advance(jobID, progressCaptions, fmt.Sprintf("Describing %d image(s)", n))
		ix.captionImages(ctx, parsed)
	}
	parsed.DropImageData()

	ix.advance(jobID, progressChunking, "Chunking document")
	result := ix.chunker.Chunk(parsed, docID)
	if len(result.Chunks) == 0 {
		return zero, &stageError{stage: "Chunking document", err: domain.ErrNoChunks}
	}

	ix.advance(jobID, progressEmbedding, fmt.Sprintf("Embedding %d chunks", len(result.Chunks)))
	texts := make([]string, len(result.Chunks))
	labels := make([]string, len(result.Chunks))
	for i, c := range result.Chunks {
		texts[i] = c.EmbeddingText()
		labels[i] = "chunk " + c.ID
	}
	vectors, err := ix.embedder.EmbedAll(ctx, texts, labels)
	if err != nil {
		return zero, &stageError{stage: "Embedding chunks", err: err}
	}
	for i := range result.Chunks {
		result.Chunks[i].Embedding = vectors[i]
	}

	ix.advance(jobID, progressStoring, "Storing chunks")
	if err := ix.vectorStore.Upsert(ctx, result.Chunks); err != nil {
		return zero, &stageError{stage: "Storing chunks", err: err}
	}

	title := parsed.Title
	if err := ix.registry.MarkIndexed(ctx, docID, title, result.Counts); err != nil {
		return zero, &stageError{stage: "Storing chunks", err: err}
	}
	return result.Counts, nil
}

// captionImages describes each image in place. A single caption failure
// is logged and skipped; the image simply produces no chunk.
func (ix *Indexer) captionImages(ctx context.Context, parsed *domain.ParsedDocument) {
	described := 0
	for i := range parsed.Items {
		item := &parsed.Items[i]
		if item.Kind != domain.ItemImage || len(item.ImageData) == 0 {
			continue
		}
		caption, err := ix.captioner.Caption(ctx, item.ImageData, nearbyText(parsed.Items, i))
		if err != nil {
			logger.Warn("Image caption failed on page(s) %v: %v, image skipped", item.Pages, err)
			continue
		}
		item.Text = caption
		described++
	}
	logger.Debug("Described %d image(s)", described)
}

// nearbyText gathers text around an image to ground its caption.
func nearbyText(items []domain.ContentItem, idx int) string {
	var parts []string
	for i := idx - 1; i >= 0 && len(parts) < 2; i-- {
		if items[i].Kind == domain.ItemParagraph || items[i].Kind == domain.ItemHeading {
			// Collected walking backwards; restore document order.
			parts = append([]string{items[i].Text}, parts...)
		}
	}
	joined := strings.Join(parts, "\n")
	if len(joined) > 500 {
		joined = joined[:500]
	}
	return joined
}

// stageError ties a failure to the pipeline stage it happened in.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func stageLabel(err error) string {
	if se, ok := err.(*stageError); ok {
		return se.stage
	}
	return "Indexing"
}

func snapshotJob(job *domain.Job) *domain.Job {
	copied := *job
	return &copied
}
