package cli

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// setupTestServices installs mock services with canned data and returns a
// cleanup function restoring the previous services.
func setupTestServices() func() {
	oldIndexing := indexingService
	oldDocument := documentService
	oldQuery := queryService
	oldSettings := settingsStore

	indexingService = &mockIndexingService{
		job: &domain.Job{
			ID:         "job-1",
			Filename:   "report.pdf",
			Status:     domain.JobDone,
			Progress:   1,
			DocumentID: "doc-1",
			Counts:     domain.ChunkCounts{Text: 10, Table: 2, Image: 1},
			CreatedAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		},
	}
	documentService = &mockDocumentService{
		documents: []domain.Document{
			{
				ID:        "doc-1",
				Filename:  "report.pdf",
				Title:     "Annual Report",
				Status:    domain.DocumentIndexed,
				Counts:    domain.ChunkCounts{Text: 10, Table: 2, Image: 1},
				CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			},
		},
	}
	queryService = &mockQueryService{
		answer: &domain.Answer{
			Question: "test question",
			Text:     "The revenue grew 12% [1].",
			ModelID:  "llama3.2",
			Usage:    domain.Usage{InputTokens: 100, OutputTokens: 50},
			Sources: []domain.RetrievedSource{
				{
					Chunk: domain.Chunk{
						DocumentID:  "doc-1",
						Heading:     "Results",
						Pages:       []int{4},
						ContentType: domain.ContentText,
					},
					Filename: "report.pdf",
					Title:    "Annual Report",
					Score:    0.91,
				},
			},
		},
	}
	settingsStore = &mockSettingsStore{settings: &domain.Settings{}}

	return func() {
		indexingService = oldIndexing
		documentService = oldDocument
		queryService = oldQuery
		settingsStore = oldSettings
	}
}

// mockIndexingService is a mock implementation of driving.IndexingService.
type mockIndexingService struct {
	job       *domain.Job
	submitErr error
}

func (m *mockIndexingService) Submit(_ context.Context, _ []byte, filename string) (*domain.Job, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	job := *m.job
	job.Filename = filename
	return &job, nil
}

func (m *mockIndexingService) Job(id string) (*domain.Job, bool) {
	if m.job == nil || m.job.ID != id {
		return nil, false
	}
	job := *m.job
	return &job, true
}

func (m *mockIndexingService) Jobs() []*domain.Job {
	if m.job == nil {
		return nil
	}
	job := *m.job
	return []*domain.Job{&job}
}

func (m *mockIndexingService) Wait(_ context.Context, id string) (*domain.Job, error) {
	job, ok := m.Job(id)
	if !ok {
		return nil, errors.New("job not found")
	}
	return job, nil
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	deleted   []string
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer *domain.Answer
	events []domain.StreamEvent
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
	opts driving.QueryOptions,
) (<-chan domain.StreamEvent, error) {
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.StreamEvent, len(m.events))
	for _, event := range m.events {
		ch <- event
	}
	close(ch)
	return ch, nil
}

// mockSettingsStore is a mock implementation of driven.SettingsStore.
type mockSettingsStore struct {
	settings *domain.Settings
	saved    *domain.Settings
	err      error
}

func (m *mockSettingsStore) Load() (*domain.Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.settings, nil
}

func (m *mockSettingsStore) Save(settings *domain.Settings) error {
	if m.err != nil {
		return m.err
	}
	m.saved = settings
	return nil
}

func (m *mockSettingsStore) Path() string {
	return "/tmp/docquery/config.toml"
}
