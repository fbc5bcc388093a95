package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Default gateway tuning. Character limits approximate the embedding
// model's token window conservatively.
const (
	defaultEmbedBatchSize = 16
	defaultEmbedMaxChars  = 8000
	defaultEmbedRetries   = 3
	defaultEmbedBackoff   = 500 * time.Millisecond
)

// EmbeddingGateway wraps an embedding service with batching, retry with
// backoff, deterministic input truncation and rate limiting.
//
// A batch either succeeds wholesale or, after retries are exhausted, fails
// the whole call. There is no silent truncation of the result: the output
// always has one vector per input, in input order.
type EmbeddingGateway struct {
	service   driven.EmbeddingService
	limiter   *rate.Limiter
	batchSize int
	maxChars  int
	retries   int
	backoff   time.Duration
}

// GatewayOption configures the embedding gateway.
type GatewayOption func(*EmbeddingGateway)

// WithBatchSize sets the number of texts per upstream call.
func WithBatchSize(n int) GatewayOption {
	return func(g *EmbeddingGateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithMaxChars caps input length before truncation.
func WithMaxChars(n int) GatewayOption {
	return func(g *EmbeddingGateway) {
		if n > 0 {
			g.maxChars = n
		}
	}
}

// WithRetries sets the retry count per batch.
func WithRetries(n int) GatewayOption {
	return func(g *EmbeddingGateway) {
		if n >= 0 {
			g.retries = n
		}
	}
}

// WithRateLimit caps upstream calls per second.
func WithRateLimit(callsPerSecond float64) GatewayOption {
	return func(g *EmbeddingGateway) {
		if callsPerSecond > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(callsPerSecond), 1)
		}
	}
}

// NewEmbeddingGateway wraps an embedding service.
func NewEmbeddingGateway(service driven.EmbeddingService, opts ...GatewayOption) *EmbeddingGateway {
	g := &EmbeddingGateway{
		service:   service,
		batchSize: defaultEmbedBatchSize,
		maxChars:  defaultEmbedMaxChars,
		retries:   defaultEmbedRetries,
		backoff:   defaultEmbedBackoff,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dimensions returns the embedding vector size.
func (g *EmbeddingGateway) Dimensions() int {
	return g.service.Dimensions()
}

// ModelName returns the underlying embedding model name.
func (g *EmbeddingGateway) ModelName() string {
	return g.service.ModelName()
}

// EmbedQuery embeds a single query string in the same embedding space as
// indexed chunks.
func (g *EmbeddingGateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedAll(ctx, []string{text}, []string{"query"})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedAll embeds all texts, batching upstream calls. labels name each
// text (chunk IDs during indexing) so truncation can be logged against its
// owner; a nil labels slice disables that attribution.
func (g *EmbeddingGateway) EmbedAll(ctx context.Context, texts []string, labels []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prepared := make([]string, len(texts))
	for i, text := range texts {
		truncated, wasTruncated := truncateAtWord(text, g.maxChars)
		if wasTruncated {
			label := fmt.Sprintf("input %d", i)
			if labels != nil && i < len(labels) {
				label = labels[i]
			}
			logger.Warn("Embedding input truncated from %d to %d chars (%s)", len(text), len(truncated), label)
		}
		prepared[i] = truncated
	}

	out := make([][]float32, 0, len(prepared))
	for start := 0; start < len(prepared); start += g.batchSize {
		end := start + g.batchSize
		if end > len(prepared) {
			end = len(prepared)
		}
		vectors, err := g.embedBatch(ctx, prepared[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// embedBatch calls upstream with retry and backoff. All-or-nothing: a
// partial result is treated as a failure.
func (g *EmbeddingGateway) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			delay := g.backoff << (attempt - 1)
			logger.Debug("Embedding retry %d/%d after %v: %v", attempt, g.retries, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		vectors, err := g.service.EmbedBatch(ctx, batch)
		if err != nil {
			lastErr = err
			continue
		}
		if len(vectors) != len(batch) {
			lastErr = fmt.Errorf("expected %d vectors, got %d", len(batch), len(vectors))
			continue
		}
		return vectors, nil
	}
	return nil, lastErr
}

// truncateAtWord cuts text to at most maxChars, backing up to the previous
// word boundary so the cut is deterministic and never mid-word.
func truncateAtWord(text string, maxChars int) (string, bool) {
	if len(text) <= maxChars {
		return text, false
	}
	cut := text[:maxChars]
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \t\n"), true
}
