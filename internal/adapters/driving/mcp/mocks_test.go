package mcp

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer *domain.Answer
	opts   driving.QueryOptions
	err    error
}

func (m *mockQueryService) Ask(
	_ context.Context,
	_ string,
	opts driving.QueryOptions,
) (*domain.Answer, error) {
	m.opts = opts
	return m.answer, m.err
}

func (m *mockQueryService) AskStream(
	_ context.Context,
	_ string,
	_ driving.QueryOptions,
) (<-chan domain.StreamEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.StreamEvent)
	close(ch)
	return ch, nil
}

// mockIndexingService is a mock implementation of driving.IndexingService.
type mockIndexingService struct {
	job  *domain.Job
	jobs []*domain.Job
	err  error
}

func (m *mockIndexingService) Submit(_ context.Context, _ []byte, _ string) (*domain.Job, error) {
	return m.job, m.err
}

func (m *mockIndexingService) Job(_ string) (*domain.Job, bool) {
	return m.job, m.job != nil
}

func (m *mockIndexingService) Jobs() []*domain.Job {
	return m.jobs
}

func (m *mockIndexingService) Wait(_ context.Context, _ string) (*domain.Job, error) {
	return m.job, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}
