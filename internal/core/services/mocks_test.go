package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// mockEmbeddingService returns canned vectors. Texts without a canned
// vector get the fallback.
type mockEmbeddingService struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    int
	// failures makes the first N EmbedBatch calls fail with failErr.
	failures int
	failErr  error
}

func newMockEmbeddingService() *mockEmbeddingService {
	return &mockEmbeddingService{
		vectors:  make(map[string][]float32),
		fallback: []float32{1, 0, 0},
	}
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return nil, m.failErr
	}
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := m.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = m.fallback
		}
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int { return len(m.fallback) }

func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(context.Context) error { return nil }

func (m *mockEmbeddingService) Close() error { return nil }

// mockParser returns a canned parsed document. When block is set, Parse
// holds until the channel is closed.
type mockParser struct {
	mu     sync.Mutex
	parsed *domain.ParsedDocument
	err    error
	calls  int
	block  chan struct{}
}

func (m *mockParser) Parse(ctx context.Context, _ []byte, _ string) (*domain.ParsedDocument, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	m.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.parsed, m.err
}

func (m *mockParser) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockParser) Ping(context.Context) error { return nil }

// mockCaptioner captions every image with a fixed string.
type mockCaptioner struct {
	caption string
	err     error
}

func (m *mockCaptioner) Caption(_ context.Context, _ []byte, _ string) (string, error) {
	return m.caption, m.err
}

func (m *mockCaptioner) ModelName() string { return "mock-vision" }

// mockLLMService returns a canned answer, buffered or streamed.
type mockLLMService struct {
	answer string
	usage  domain.Usage
	err    error
	// streamErr ends the stream with an error after the deltas.
	streamErr error
	// deltas overrides the default single-delta stream.
	deltas []string
}

func (m *mockLLMService) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, domain.Usage, error) {
	if m.err != nil {
		return "", domain.Usage{}, m.err
	}
	return m.answer, m.usage, nil
}

func (m *mockLLMService) GenerateStream(_ context.Context, _ string, _ driven.GenerateOptions) (<-chan driven.StreamDelta, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(chan driven.StreamDelta)
	go func() {
		defer close(out)
		deltas := m.deltas
		if deltas == nil {
			deltas = []string{m.answer}
		}
		for _, text := range deltas {
			out <- driven.StreamDelta{Text: text}
		}
		if m.streamErr != nil {
			out <- driven.StreamDelta{Err: m.streamErr}
			return
		}
		usage := m.usage
		out <- driven.StreamDelta{Done: true, Usage: &usage}
	}()
	return out, nil
}

func (m *mockLLMService) ModelName() string { return "mock-llm" }

func (m *mockLLMService) Ping(context.Context) error { return nil }

func (m *mockLLMService) Close() error { return nil }

// mockRetriever returns canned sources without touching a vector store.
type mockRetriever struct {
	sources []domain.RetrievedSource
	err     error
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, _ driving.QueryOptions) ([]domain.RetrievedSource, error) {
	return m.sources, m.err
}
