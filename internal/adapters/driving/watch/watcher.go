// Package watch feeds PDFs dropped into a directory to the indexing
// service. Writes are debounced so a file is only submitted once its
// producer has finished writing it.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
)

// DefaultSettleDelay is how long a file must be quiet before it is
// submitted for indexing.
const DefaultSettleDelay = 2 * time.Second

// Watcher monitors a directory and submits new or changed PDFs.
type Watcher struct {
	indexing    driving.IndexingService
	dir         string
	settleDelay time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettleDelay overrides the write-settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) { w.settleDelay = d }
}

// NewWatcher creates a watcher for the given directory.
func NewWatcher(indexing driving.IndexingService, dir string, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %s is not a directory", dir)
	}

	w := &Watcher{
		indexing:    indexing,
		dir:         dir,
		settleDelay: DefaultSettleDelay,
		pending:     make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is cancelled. Existing PDFs in the directory are
// submitted on startup so a pre-populated drop directory gets indexed.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.submitExisting(ctx)

	logger.Info("Watching %s for PDFs", w.dir)
	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// handleEvent schedules a settled submit for relevant create/write events.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !isPDF(event.Name) || isHidden(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Reset the timer on every write so we only fire once the file has
	// been quiet for the settle delay.
	if timer, ok := w.pending[event.Name]; ok {
		timer.Stop()
	}
	path := event.Name
	w.pending[path] = time.AfterFunc(w.settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.submit(ctx, path)
	})
}

// submitExisting queues every PDF already present in the directory.
func (w *Watcher) submitExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("Reading watch directory: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if isPDF(name) && !isHidden(name) {
			w.submit(ctx, filepath.Join(w.dir, name))
		}
	}
}

// submit reads the file and hands it to the indexing service. Dedup by
// content hash makes re-submitting an unchanged file a cheap no-op.
func (w *Watcher) submit(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Reading %s: %v", path, err)
		return
	}

	job, err := w.indexing.Submit(ctx, data, filepath.Base(path))
	if err != nil {
		logger.Warn("Submitting %s: %v", path, err)
		return
	}
	logger.Info("Submitted %s (job %s)", filepath.Base(path), job.ID)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// isPDF reports whether the path has a .pdf extension.
func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// isHidden reports whether any path element starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' {
			return true
		}
	}
	return false
}
