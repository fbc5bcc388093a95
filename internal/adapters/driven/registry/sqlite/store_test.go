package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// setupTestStore creates a temporary SQLite registry store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func testDocument(id, hash string) domain.Document {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return domain.Document{
		ID:          id,
		ContentHash: hash,
		Filename:    id + ".pdf",
		Title:       "Document " + id,
		Status:      domain.DocumentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestNewStore_CreatesDatabaseFile(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)

	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, filepath.Join(tempDir, "registry.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening the same directory must not re-run applied migrations.
	store, err = NewStore(tempDir)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := testDocument("doc-1", "hash-1")
	require.NoError(t, store.Save(ctx, doc))

	got, err := store.Get(ctx, "doc-1")

	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.Equal(t, doc.Filename, got.Filename)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Status, got.Status)
	assert.True(t, doc.CreatedAt.Equal(got.CreatedAt))
}

func TestStore_GetNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_GetByHash(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testDocument("doc-1", "hash-1")))
	require.NoError(t, store.Save(ctx, testDocument("doc-2", "hash-2")))

	got, err := store.GetByHash(ctx, "hash-2")

	require.NoError(t, err)
	assert.Equal(t, "doc-2", got.ID)

	_, err = store.GetByHash(ctx, "hash-9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_SaveUpdatesExisting(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := testDocument("doc-1", "hash-1")
	require.NoError(t, store.Save(ctx, doc))

	doc.Status = domain.DocumentIndexed
	doc.Counts = domain.ChunkCounts{Text: 10, Table: 2, Image: 1}
	doc.UpdatedAt = doc.UpdatedAt.Add(time.Minute)
	require.NoError(t, store.Save(ctx, doc))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentIndexed, got.Status)
	assert.Equal(t, 10, got.Counts.Text)
	assert.Equal(t, 2, got.Counts.Table)
	assert.Equal(t, 1, got.Counts.Image)

	// Update must not create a second row.
	docs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStore_SavePersistsError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	doc := testDocument("doc-1", "hash-1")
	doc.Status = domain.DocumentFailed
	doc.Error = "parsing PDF: connection refused"
	require.NoError(t, store.Save(ctx, doc))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentFailed, got.Status)
	assert.Equal(t, "parsing PDF: connection refused", got.Error)
}

func TestStore_ListOrderedByCreation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := testDocument("doc-b", "hash-b")
	second := testDocument("doc-a", "hash-a")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	second.UpdatedAt = second.CreatedAt

	require.NoError(t, store.Save(ctx, second))
	require.NoError(t, store.Save(ctx, first))

	docs, err := store.List(ctx)

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-b", docs[0].ID)
	assert.Equal(t, "doc-a", docs[1].ID)
}

func TestStore_ListEmpty(t *testing.T) {
	store := setupTestStore(t)

	docs, err := store.List(context.Background())

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testDocument("doc-1", "hash-1")))

	require.NoError(t, store.Delete(ctx, "doc-1"))

	_, err := store.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting an absent ID is a no-op.
	assert.NoError(t, store.Delete(ctx, "doc-1"))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, testDocument("doc-1", "hash-1")))
	require.NoError(t, store.Close())

	store, err = NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)
}
