package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer with sources", func(t *testing.T) {
		mockQuery := &mockQueryService{
			answer: &domain.Answer{
				Text:    "The revenue grew 12% [1].",
				ModelID: "llama3.2",
				Sources: []domain.RetrievedSource{
					{
						Chunk: domain.Chunk{
							DocumentID: "doc-1",
							Heading:    "Results",
							Pages:      []int{4},
						},
						Filename: "report.pdf",
						Score:    0.91,
					},
				},
			},
		}

		ports := &Ports{Query: mockQuery}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := AskInput{Question: "How did revenue develop?"}
		_, output, err := server.handleAsk(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "The revenue grew 12% [1].", output.Answer)
		assert.Equal(t, "llama3.2", output.Model)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "doc-1", output.Sources[0].DocumentID)
		assert.Equal(t, "report.pdf", output.Sources[0].Filename)
		assert.Equal(t, "Results", output.Sources[0].Heading)
		assert.Equal(t, []int{4}, output.Sources[0].Pages)
		assert.Equal(t, 0.91, output.Sources[0].Score)
	})

	t.Run("passes scope and top_k through", func(t *testing.T) {
		mockQuery := &mockQueryService{answer: &domain.Answer{}}
		ports := &Ports{Query: mockQuery}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := AskInput{
			Question:    "test",
			DocumentIDs: []string{"doc-1", "doc-2"},
			TopK:        3,
		}
		_, _, err = server.handleAsk(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, []string{"doc-1", "doc-2"}, mockQuery.opts.DocumentIDs)
		assert.Equal(t, 3, mockQuery.opts.TopK)
	})

	t.Run("returns error on query failure", func(t *testing.T) {
		mockQuery := &mockQueryService{
			err: errors.New("model unreachable"),
		}

		ports := &Ports{Query: mockQuery}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := AskInput{Question: "test"}
		_, _, err = server.handleAsk(ctx, nil, input)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "model unreachable")
	})
}

func TestServer_handleListDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("returns documents", func(t *testing.T) {
		mockDoc := &mockDocumentService{
			documents: []domain.Document{
				{
					ID:       "doc-1",
					Filename: "report.pdf",
					Title:    "Annual Report",
					Status:   domain.DocumentIndexed,
					Counts:   domain.ChunkCounts{Text: 10, Table: 2},
				},
				{
					ID:       "doc-2",
					Filename: "notes.pdf",
					Status:   domain.DocumentFailed,
				},
			},
		}

		ports := &Ports{Query: &mockQueryService{}, Document: mockDoc}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleListDocuments(ctx, nil, struct{}{})

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		require.Len(t, output.Documents, 2)
		assert.Equal(t, "doc-1", output.Documents[0].ID)
		assert.Equal(t, "Annual Report", output.Documents[0].Title)
		assert.Equal(t, "indexed", output.Documents[0].Status)
		assert.Equal(t, 12, output.Documents[0].Chunks)
		assert.Equal(t, "failed", output.Documents[1].Status)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		mockDoc := &mockDocumentService{
			err: errors.New("storage error"),
		}

		ports := &Ports{Query: &mockQueryService{}, Document: mockDoc}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleListDocuments(ctx, nil, struct{}{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage error")
	})
}
