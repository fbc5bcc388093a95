package mcp

import (
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers questions against indexed documents.
	Query driving.QueryService

	// Indexing admits uploads and tracks jobs.
	Indexing driving.IndexingService

	// Document lists and deletes indexed documents.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	// Indexing and Document are optional; the matching tools and
	// resources degrade gracefully.
	return nil
}
