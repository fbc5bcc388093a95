package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// DefaultTopK is the number of chunks retrieved when the caller does not
// override it.
const DefaultTopK = 5

// Reranker reorders retrieved sources after the vector search. The default
// is identity; a cross-encoder reranker can be plugged in without changing
// the retriever's contract.
type Reranker func(question string, sources []domain.RetrievedSource) []domain.RetrievedSource

// Retriever embeds a question and returns the most similar chunks within
// the requested document scope.
//
// The question is embedded through the same gateway configuration as the
// indexed chunks; mixing embedding spaces would make scores meaningless.
type Retriever struct {
	embedder    *EmbeddingGateway
	vectorStore driven.VectorStore
	registry    *Registry
	reranker    Reranker
}

// NewRetriever creates a retriever.
func NewRetriever(embedder *EmbeddingGateway, vectorStore driven.VectorStore, registry *Registry) *Retriever {
	return &Retriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		registry:    registry,
	}
}

// SetReranker installs a post-retrieval reranking hook.
func (r *Retriever) SetReranker(rr Reranker) {
	r.reranker = rr
}

// Retrieve returns ranked sources for a question.
//
// An empty non-nil scope returns an empty result rather than an error: a
// query against zero selected documents has a well-defined answer, nothing.
func (r *Retriever) Retrieve(ctx context.Context, question string, opts driving.QueryOptions) ([]domain.RetrievedSource, error) {
	logger.Section("Retrieval")
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if opts.DocumentIDs != nil && len(opts.DocumentIDs) == 0 {
		logger.Debug("Empty document scope, returning no sources")
		return []domain.RetrievedSource{}, nil
	}

	k := opts.TopK
	if k <= 0 {
		k = DefaultTopK
	}

	vector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	// Over-fetch when a content-type filter will discard hits.
	fetchK := k
	if opts.ContentType != "" {
		fetchK = k * 3
	}

	hits, err := r.vectorStore.Search(ctx, vector, opts.DocumentIDs, fetchK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	sources := make([]domain.RetrievedSource, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < opts.MinScore {
			continue
		}
		if opts.ContentType != "" && string(hit.Chunk.ContentType) != opts.ContentType {
			continue
		}
		sources = append(sources, r.hydrate(ctx, hit))
		if len(sources) == k {
			break
		}
	}

	if r.reranker != nil {
		sources = r.reranker(question, sources)
	}

	if len(sources) > 0 {
		logger.Debug("Retrieved %d sources (scores %.3f to %.3f)",
			len(sources), sources[0].Score, sources[len(sources)-1].Score)
	} else {
		logger.Debug("Retrieved no sources")
	}
	return sources, nil
}

// hydrate attaches document metadata to a hit. A registry miss leaves the
// filename empty rather than failing the query.
func (r *Retriever) hydrate(ctx context.Context, hit driven.SearchHit) domain.RetrievedSource {
	source := domain.RetrievedSource{
		Chunk: hit.Chunk,
		Score: hit.Score,
	}
	if doc, err := r.registry.Get(ctx, hit.Chunk.DocumentID); err == nil {
		source.Filename = doc.Filename
		source.Title = doc.Title
	}
	return source
}
