package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

type mockIndexingService struct {
	mu        sync.Mutex
	submitted []string
	err       error
}

func (m *mockIndexingService) Submit(_ context.Context, _ []byte, filename string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.submitted = append(m.submitted, filename)
	return &domain.Job{ID: "job-1", Filename: filename}, nil
}

func (m *mockIndexingService) Job(string) (*domain.Job, bool) { return nil, false }

func (m *mockIndexingService) Jobs() []*domain.Job { return nil }

func (m *mockIndexingService) Wait(context.Context, string) (*domain.Job, error) {
	return nil, errors.New("not implemented")
}

func (m *mockIndexingService) filenames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.submitted...)
}

func TestNewWatcherMissingDirectory(t *testing.T) {
	_, err := NewWatcher(&mockIndexingService{}, filepath.Join(t.TempDir(), "nope"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch directory")
}

func TestNewWatcherPathIsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0o644))

	_, err := NewWatcher(&mockIndexingService{}, path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestNewWatcherDefaults(t *testing.T) {
	w, err := NewWatcher(&mockIndexingService{}, t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, DefaultSettleDelay, w.settleDelay)
}

func TestWithSettleDelay(t *testing.T) {
	w, err := NewWatcher(&mockIndexingService{}, t.TempDir(), WithSettleDelay(50*time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, w.settleDelay)
}

func TestSubmitExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF-1.7 a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.PDF"), []byte("%PDF-1.7 b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a pdf"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("%PDF-1.7 h"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	indexing := &mockIndexingService{}
	w, err := NewWatcher(indexing, dir)
	require.NoError(t, err)

	w.submitExisting(context.Background())

	assert.ElementsMatch(t, []string{"a.pdf", "b.PDF"}, indexing.filenames())
}

func TestSubmitSkipsAfterCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 a"), 0o644))

	indexing := &mockIndexingService{}
	w, err := NewWatcher(indexing, dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.submit(ctx, path)

	assert.Empty(t, indexing.filenames())
}

func TestHandleEventDebounce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 report"), 0o644))

	indexing := &mockIndexingService{}
	w, err := NewWatcher(indexing, dir, WithSettleDelay(30*time.Millisecond))
	require.NoError(t, err)

	ctx := context.Background()
	event := fsnotify.Event{Name: path, Op: fsnotify.Write}
	w.handleEvent(ctx, event)
	w.handleEvent(ctx, event)
	w.handleEvent(ctx, event)

	require.Eventually(t, func() bool {
		return len(indexing.filenames()) > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"report.pdf"}, indexing.filenames())
}

func TestHandleEventIgnoresIrrelevant(t *testing.T) {
	dir := t.TempDir()
	indexing := &mockIndexingService{}
	w, err := NewWatcher(indexing, dir, WithSettleDelay(time.Millisecond))
	require.NoError(t, err)

	ctx := context.Background()
	w.handleEvent(ctx, fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Write})
	w.handleEvent(ctx, fsnotify.Event{Name: filepath.Join(dir, ".partial.pdf"), Op: fsnotify.Create})
	w.handleEvent(ctx, fsnotify.Event{Name: filepath.Join(dir, "gone.pdf"), Op: fsnotify.Remove})

	w.mu.Lock()
	pending := len(w.pending)
	w.mu.Unlock()
	assert.Zero(t, pending)
}

func TestCancelPending(t *testing.T) {
	dir := t.TempDir()
	indexing := &mockIndexingService{}
	w, err := NewWatcher(indexing, dir, WithSettleDelay(time.Hour))
	require.NoError(t, err)

	w.handleEvent(context.Background(), fsnotify.Event{
		Name: filepath.Join(dir, "report.pdf"),
		Op:   fsnotify.Create,
	})
	w.cancelPending()

	w.mu.Lock()
	pending := len(w.pending)
	w.mu.Unlock()
	assert.Zero(t, pending)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("report.pdf"))
	assert.True(t, isPDF("REPORT.PDF"))
	assert.True(t, isPDF(filepath.Join("dir", "nested.Pdf")))
	assert.False(t, isPDF("notes.txt"))
	assert.False(t, isPDF("archive.pdf.bak"))
	assert.False(t, isPDF("pdf"))
}

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden(".partial.pdf"))
	assert.True(t, isHidden(filepath.Join("drop", ".tmp.pdf")))
	assert.True(t, isHidden(filepath.Join(".cache", "report.pdf")))
	assert.False(t, isHidden("report.pdf"))
	assert.False(t, isHidden(filepath.Join("drop", "report.pdf")))
}
