package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore persists application settings as a TOML file.
type SettingsStore struct {
	mu       sync.Mutex
	filePath string
}

// settingsFile is the on-disk TOML layout. Kept separate from the domain
// type so field renames there do not silently break existing configs.
type settingsFile struct {
	Embedding struct {
		Provider string `toml:"provider"`
		Model    string `toml:"model"`
		BaseURL  string `toml:"base_url,omitempty"`
		APIKey   string `toml:"api_key,omitempty"`
	} `toml:"embedding"`
	LLM struct {
		Provider string `toml:"provider"`
		Model    string `toml:"model"`
		BaseURL  string `toml:"base_url,omitempty"`
		APIKey   string `toml:"api_key,omitempty"`
	} `toml:"llm"`
	Parser struct {
		BaseURL       string `toml:"base_url"`
		OCR           bool   `toml:"ocr"`
		CaptionImages bool   `toml:"caption_images"`
	} `toml:"parser"`
	VectorStore struct {
		Kind       string `toml:"kind"`
		URL        string `toml:"url,omitempty"`
		APIKey     string `toml:"api_key,omitempty"`
		Collection string `toml:"collection,omitempty"`
	} `toml:"vector_store"`
	Chunking struct {
		ChunkSize    int `toml:"chunk_size"`
		MinChunkSize int `toml:"min_chunk_size"`
	} `toml:"chunking"`
}

// NewSettingsStore creates a TOML settings store.
// If configDir is empty, defaults to ~/.docquery.
func NewSettingsStore(configDir string) (*SettingsStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".docquery")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &SettingsStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Load reads settings from disk. A missing file yields defaults.
func (s *SettingsStore) Load() (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := DefaultSettings()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var f settingsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if f.Embedding.Provider != "" {
		settings.Embedding.Provider = domain.AIProvider(f.Embedding.Provider)
	}
	if f.Embedding.Model != "" {
		settings.Embedding.Model = f.Embedding.Model
	}
	if f.Embedding.BaseURL != "" {
		settings.Embedding.BaseURL = f.Embedding.BaseURL
	}
	settings.Embedding.APIKey = f.Embedding.APIKey

	if f.LLM.Provider != "" {
		settings.LLM.Provider = domain.AIProvider(f.LLM.Provider)
	}
	if f.LLM.Model != "" {
		settings.LLM.Model = f.LLM.Model
	}
	if f.LLM.BaseURL != "" {
		settings.LLM.BaseURL = f.LLM.BaseURL
	}
	settings.LLM.APIKey = f.LLM.APIKey

	if f.Parser.BaseURL != "" {
		settings.Parser.BaseURL = f.Parser.BaseURL
	}
	settings.Parser.OCR = f.Parser.OCR
	settings.Parser.CaptionImages = f.Parser.CaptionImages

	if f.VectorStore.Kind != "" {
		settings.VectorStore.Kind = domain.VectorStoreKind(f.VectorStore.Kind)
	}
	settings.VectorStore.URL = f.VectorStore.URL
	settings.VectorStore.APIKey = f.VectorStore.APIKey
	settings.VectorStore.Collection = f.VectorStore.Collection

	if f.Chunking.ChunkSize > 0 {
		settings.Chunking.ChunkSize = f.Chunking.ChunkSize
	}
	if f.Chunking.MinChunkSize > 0 {
		settings.Chunking.MinChunkSize = f.Chunking.MinChunkSize
	}

	return settings, nil
}

// Save writes settings to disk with restricted permissions, since the file
// can hold API keys.
func (s *SettingsStore) Save(settings *domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f settingsFile
	f.Embedding.Provider = settings.Embedding.Provider.String()
	f.Embedding.Model = settings.Embedding.Model
	f.Embedding.BaseURL = settings.Embedding.BaseURL
	f.Embedding.APIKey = settings.Embedding.APIKey
	f.LLM.Provider = settings.LLM.Provider.String()
	f.LLM.Model = settings.LLM.Model
	f.LLM.BaseURL = settings.LLM.BaseURL
	f.LLM.APIKey = settings.LLM.APIKey
	f.Parser.BaseURL = settings.Parser.BaseURL
	f.Parser.OCR = settings.Parser.OCR
	f.Parser.CaptionImages = settings.Parser.CaptionImages
	f.VectorStore.Kind = string(settings.VectorStore.Kind)
	f.VectorStore.URL = settings.VectorStore.URL
	f.VectorStore.APIKey = settings.VectorStore.APIKey
	f.VectorStore.Collection = settings.VectorStore.Collection
	f.Chunking.ChunkSize = settings.Chunking.ChunkSize
	f.Chunking.MinChunkSize = settings.Chunking.MinChunkSize

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// Path returns the configuration file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}

// DefaultSettings returns the configuration used before any file exists:
// local services only, no API keys.
func DefaultSettings() *domain.Settings {
	return &domain.Settings{
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProviderOllama,
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		LLM: domain.LLMSettings{
			Provider: domain.AIProviderOllama,
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
		},
		Parser: domain.ParserSettings{
			BaseURL:       "http://localhost:5001",
			OCR:           true,
			CaptionImages: false,
		},
		VectorStore: domain.VectorStoreSettings{
			Kind: domain.VectorStoreSQLite,
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize:    1200,
			MinChunkSize: 120,
		},
	}
}
