package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DocumentStatus describes where a document is in its indexing lifecycle.
type DocumentStatus string

// Document lifecycle states.
const (
	// DocumentPending means the document record exists but indexing has not started.
	DocumentPending DocumentStatus = "pending"

	// DocumentIndexing means an indexing job is currently processing the document.
	DocumentIndexing DocumentStatus = "indexing"

	// DocumentIndexed means the document is fully chunked, embedded and searchable.
	DocumentIndexed DocumentStatus = "indexed"

	// DocumentFailed means indexing failed. The record stays listed so the
	// failure can be inspected, retried or cleaned up.
	DocumentFailed DocumentStatus = "failed"
)

// IsTerminal returns true if the status will not change without a new upload.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentIndexed || s == DocumentFailed
}

// ChunkCounts breaks down a document's chunks by content type.
type ChunkCounts struct {
	// Text is the number of plain text chunks.
	Text int

	// Table is the number of table chunks.
	Table int

	// Image is the number of image-caption chunks.
	Image int
}

// Total returns the total number of chunks.
func (c ChunkCounts) Total() int {
	return c.Text + c.Table + c.Image
}

// Document represents one indexed PDF. Its identity is derived from the
// content hash, so byte-identical uploads always resolve to the same record.
type Document struct {
	// ID is the unique identifier, derived from ContentHash.
	ID string

	// ContentHash is the SHA-256 hex digest of the raw file bytes.
	// It is the deduplication key: one hash, one document.
	ContentHash string

	// Filename is the name the file was uploaded under.
	Filename string

	// Title is the document title extracted by the parser, falling back
	// to the filename stem.
	Title string

	// Status is the current lifecycle state.
	Status DocumentStatus

	// Counts holds per-type chunk counts once indexing completes.
	Counts ChunkCounts

	// Error holds the failure message when Status is DocumentFailed.
	Error string

	// CreatedAt is when the document was first seen.
	CreatedAt time.Time

	// UpdatedAt is when the record last changed state.
	UpdatedAt time.Time
}

// documentIDLength is the number of hash hex characters used for the ID.
const documentIDLength = 16

// ContentHash computes the SHA-256 hex digest of raw file bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DocumentIDFromHash derives a stable document ID from a content hash.
func DocumentIDFromHash(hash string) string {
	if len(hash) < documentIDLength {
		return hash
	}
	return hash[:documentIDLength]
}
