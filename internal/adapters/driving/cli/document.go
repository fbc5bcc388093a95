package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

var documentListJSON bool

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `List and delete indexed documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE:  runDocumentList,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Long:  `Removes a document from the registry and purges all of its chunks from the vector store.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentListCmd.Flags().BoolVar(&documentListJSON, "json", false, "output documents as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := context.Background()
	docs, err := documentService.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentListJSON {
		return outputDocumentsJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	for i := range docs {
		doc := &docs[i]
		cmd.Printf("  %s  %-8s  %s\n", doc.ID, doc.Status, doc.Filename)
		if doc.Title != "" && doc.Title != doc.Filename {
			cmd.Printf("      Title: %s\n", doc.Title)
		}
		if doc.Status == domain.DocumentIndexed {
			cmd.Printf("      Chunks: %d (%d text, %d tables, %d images)\n",
				doc.Counts.Total(), doc.Counts.Text, doc.Counts.Table, doc.Counts.Image)
		}
		if doc.Status == domain.DocumentFailed && doc.Error != "" {
			cmd.Printf("      Error: %s\n", doc.Error)
		}
		cmd.Printf("      Indexed: %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	ctx := context.Background()

	if err := documentService.Delete(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}

// documentJSON is the machine-readable projection of a document.
type documentJSON struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status"`
	TextChunks  int    `json:"text_chunks"`
	TableChunks int    `json:"table_chunks"`
	ImageChunks int    `json:"image_chunks"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func outputDocumentsJSON(cmd *cobra.Command, docs []domain.Document) error {
	out := make([]documentJSON, len(docs))
	for i := range docs {
		out[i] = documentJSON{
			ID:          docs[i].ID,
			Filename:    docs[i].Filename,
			Title:       docs[i].Title,
			Status:      string(docs[i].Status),
			TextChunks:  docs[i].Counts.Text,
			TableChunks: docs[i].Counts.Table,
			ImageChunks: docs[i].Counts.Image,
			Error:       docs[i].Error,
			CreatedAt:   docs[i].CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
