// Command docquery indexes PDF documents and answers questions about them
// from the command line or over MCP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/docquery/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/docquery/internal/adapters/driven/config/file"
	registrysqlite "github.com/custodia-labs/docquery/internal/adapters/driven/registry/sqlite"
	vectorqdrant "github.com/custodia-labs/docquery/internal/adapters/driven/vectorstore/qdrant"
	vectorsqlite "github.com/custodia-labs/docquery/internal/adapters/driven/vectorstore/sqlite"
	"github.com/custodia-labs/docquery/internal/adapters/driving/cli"
	"github.com/custodia-labs/docquery/internal/chunker"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/core/services"
	"github.com/custodia-labs/docquery/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	settingsStore, err := configfile.NewSettingsStore("")
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}

	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	registryStore, err := registrysqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("failed to open document registry: %w", err)
	}
	defer registryStore.Close()

	vectorStore, err := buildVectorStore(settings)
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}
	defer vectorStore.Close()

	registry := services.NewRegistry(registryStore, vectorStore)

	// Surface documents indexed out of band (or left over after a registry
	// wipe) in listings. Best effort: a broken vector store already fails
	// louder elsewhere.
	if _, err := registry.SeedFromVectorStore(context.Background()); err != nil {
		logger.Warn("registry seeding skipped: %v", err)
	}

	// AI services are created without connectivity checks so commands like
	// 'settings' and 'document list' work with a broken provider config.
	// Pipeline commands surface the problem when they first call out.
	var indexing driving.IndexingService
	var query driving.QueryService

	embedSvc, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		logger.Warn("embedding provider unavailable: %v", err)
	}
	llmSvc, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		logger.Warn("LLM provider unavailable: %v", err)
	}
	if llmSvc != nil {
		defer llmSvc.Close()
	}

	if embedSvc != nil {
		defer embedSvc.Close()
		gateway := services.NewEmbeddingGateway(embedSvc)

		parser, err := ai.CreateParser(&settings.Parser)
		if err != nil {
			logger.Warn("parser unavailable: %v", err)
		} else {
			captioner, err := ai.CreateCaptioner(&settings.LLM)
			if err != nil {
				logger.Warn("image captioning unavailable: %v", err)
			}

			chk := chunker.New(
				chunker.WithChunkSize(settings.Chunking.ChunkSize),
				chunker.WithMinChunkSize(settings.Chunking.MinChunkSize),
			)
			indexer := services.NewIndexer(registry, parser, captioner, gateway, vectorStore, chk)
			defer indexer.Close()
			indexing = indexer
		}

		if llmSvc != nil {
			retriever := services.NewRetriever(gateway, vectorStore, registry)
			query = services.NewGenerator(retriever, llmSvc)
		}
	}

	cli.SetServices(indexing, registry, query, settingsStore)
	return cli.Execute()
}

// buildVectorStore opens the configured vector store backend.
func buildVectorStore(settings *domain.Settings) (driven.VectorStore, error) {
	switch settings.VectorStore.Kind {
	case domain.VectorStoreQdrant:
		dimensions := ai.EmbeddingDimensions()[settings.Embedding.Model]
		if dimensions == 0 {
			dimensions = 768
		}
		opts := []vectorqdrant.Option{}
		if settings.VectorStore.APIKey != "" {
			opts = append(opts, vectorqdrant.WithAPIKey(settings.VectorStore.APIKey))
		}
		if settings.VectorStore.Collection != "" {
			opts = append(opts, vectorqdrant.WithCollection(settings.VectorStore.Collection))
		}
		return vectorqdrant.NewStore(settings.VectorStore.URL, dimensions, opts...)

	case domain.VectorStoreSQLite, "":
		return vectorsqlite.NewStore("")

	default:
		return nil, fmt.Errorf("unsupported vector store: %s", settings.VectorStore.Kind)
	}
}
