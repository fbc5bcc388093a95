package driving

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// QueryOptions configures one retrieval-generation turn.
type QueryOptions struct {
	// DocumentIDs restricts retrieval to the given documents. Nil means
	// unrestricted; an empty non-nil slice retrieves nothing.
	DocumentIDs []string

	// TopK is the number of chunks to retrieve (default 5).
	TopK int

	// ContentType filters retrieval to one chunk type ("text", "table",
	// "image"). Empty means all types.
	ContentType string

	// MinScore drops retrieved chunks below this cosine similarity.
	MinScore float64

	// MaxTokens caps the generated answer length.
	MaxTokens int
}

// QueryService answers natural-language questions grounded in indexed
// documents.
type QueryService interface {
	// Ask runs a buffered query: retrieve, generate, return the full
	// answer with cited sources and usage.
	Ask(ctx context.Context, question string, opts QueryOptions) (*domain.Answer, error)

	// AskStream runs a streaming query. The returned channel delivers
	// zero or more delta events followed by exactly one terminal event,
	// then closes. Cancelling ctx stops the upstream model call.
	AskStream(ctx context.Context, question string, opts QueryOptions) (<-chan domain.StreamEvent, error)
}

// Retriever returns ranked sources for a question. Exposed as its own
// port so a reranking wrapper can replace the default implementation
// without changing the query service contract.
type Retriever interface {
	Retrieve(ctx context.Context, question string, opts QueryOptions) ([]domain.RetrievedSource, error)
}
