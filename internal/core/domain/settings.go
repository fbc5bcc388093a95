package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// AllEmbeddingProviders returns the providers that support embeddings, in
// menu order.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// AllLLMProviders returns the providers that support generation, in menu
// order.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// DefaultEmbeddingModels maps each embedding provider to its default model.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels maps each LLM provider to its default model.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ParserSettings holds the PDF parsing service configuration.
type ParserSettings struct {
	// BaseURL is the docling-serve endpoint.
	BaseURL string

	// OCR enables OCR for scanned content.
	OCR bool

	// CaptionImages enables image captioning during indexing.
	CaptionImages bool
}

// IsConfigured returns true if a parser endpoint is set.
func (p ParserSettings) IsConfigured() bool {
	return p.BaseURL != ""
}

// VectorStoreKind identifies a vector store backend.
type VectorStoreKind string

// Available vector store backends.
const (
	// VectorStoreSQLite keeps chunk vectors in the local SQLite database.
	VectorStoreSQLite VectorStoreKind = "sqlite"

	// VectorStoreQdrant uses a Qdrant server over REST.
	VectorStoreQdrant VectorStoreKind = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (k VectorStoreKind) IsValid() bool {
	return k == VectorStoreSQLite || k == VectorStoreQdrant
}

// VectorStoreSettings holds vector store configuration.
type VectorStoreSettings struct {
	// Kind selects the backend. Defaults to sqlite.
	Kind VectorStoreKind

	// URL is the Qdrant endpoint (qdrant only).
	URL string

	// APIKey is the Qdrant API key (qdrant only, optional).
	APIKey string

	// Collection is the Qdrant collection name (qdrant only).
	Collection string
}

// ChunkingSettings holds chunker tuning parameters.
type ChunkingSettings struct {
	// ChunkSize is the target chunk size in characters.
	ChunkSize int

	// MinChunkSize is the floor below which text chunks are dropped.
	MinChunkSize int
}

// Settings is the full application configuration.
type Settings struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	Parser      ParserSettings
	VectorStore VectorStoreSettings
	Chunking    ChunkingSettings
}
