package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// LLMService provides grounded answer generation.
//
// Implementations may include:
//   - Anthropic (Claude)
//   - OpenAI (GPT-4o)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces a complete text response for the prompt and
	// reports token usage.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, domain.Usage, error)

	// GenerateStream produces the response incrementally. The returned
	// channel delivers zero or more text deltas followed by exactly one
	// final element with Done set (carrying usage when the provider
	// reports it) or Err set. The channel is closed after the final
	// element. Cancelling ctx stops the upstream call promptly.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamDelta, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// System is the system prompt, empty for none.
	System string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// StreamDelta is one element of a model output stream.
type StreamDelta struct {
	// Text is the incremental output, empty on the final element.
	Text string

	// Done marks the final element of a successful stream.
	Done bool

	// Usage carries token counts on the final element when the provider
	// reports them mid-stream; nil otherwise.
	Usage *domain.Usage

	// Err is set instead of Done when the stream failed. It is always the
	// last element delivered.
	Err error
}
