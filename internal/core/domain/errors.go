package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFileType indicates the upload is not a PDF.
	// Rejected synchronously; never becomes a job.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrEmptyDocument indicates the upload has no content.
	ErrEmptyDocument = errors.New("empty document")

	// ErrNoChunks indicates parsing succeeded but chunking produced
	// nothing, typically for degenerate or unrecognisable PDFs.
	ErrNoChunks = errors.New("no chunks produced")

	// ErrParserUnavailable indicates the PDF parsing service is not
	// configured or unreachable.
	ErrParserUnavailable = errors.New("parser service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Indexing and retrieval are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer generation is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not
	// configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrIndexingInProgress indicates a delete raced an active indexing
	// job for the same document.
	ErrIndexingInProgress = errors.New("indexing in progress")

	// ErrStreamClosed indicates a read from a generation stream that has
	// already delivered its terminal event.
	ErrStreamClosed = errors.New("stream closed")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
