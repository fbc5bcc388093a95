// Package services contains the application core: the document registry,
// the indexing orchestrator, the retriever and the answer generator.
// Services depend only on domain types and ports.
package services
