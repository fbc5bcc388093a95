// Package ai provides factory functions for creating AI service adapters
// from configuration.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropiccaption "github.com/custodia-labs/docquery/internal/adapters/driven/captioner/anthropic"
	ollamaembed "github.com/custodia-labs/docquery/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/docquery/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/docquery/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/docquery/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/docquery/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/docquery/internal/adapters/driven/parser/docling"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// EmbeddingDimensions maps known embedding models to their vector sizes.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// ValidateEmbeddingConfig validates an embedding configuration by creating
// a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service
// and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateParserConfig validates the parser configuration by pinging the
// docling-serve endpoint.
func ValidateParserConfig(settings *domain.ParserSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	parser, err := CreateParser(settings)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return parser.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based
// on settings. Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		dimensions := EmbeddingDimensions()[settings.Model]
		if dimensions == 0 {
			dimensions = ollamaembed.DefaultDimensions
		}
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: EmbeddingDimensions()[settings.Model],
		})

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateParser creates the document parser from settings.
func CreateParser(settings *domain.ParserSettings) (driven.DocumentParser, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: no parser endpoint configured. Run 'docquery settings' to fix",
			domain.ErrParserUnavailable)
	}
	return docling.NewParser(docling.Config{
		BaseURL:      settings.BaseURL,
		OCR:          settings.OCR,
		ExportImages: settings.CaptionImages,
	}), nil
}

// CreateCaptioner creates an image captioner when the LLM settings name a
// provider with vision support. Returns nil (no captioning) otherwise.
func CreateCaptioner(settings *domain.LLMSettings) (driven.ImageCaptioner, error) {
	if settings == nil || settings.Provider != domain.AIProviderAnthropic || settings.APIKey == "" {
		return nil, nil
	}
	return anthropiccaption.NewCaptioner(anthropiccaption.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
	})
}
