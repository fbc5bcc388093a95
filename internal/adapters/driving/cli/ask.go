package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

var (
	askDocuments []string
	askTopK      int
	askType      string
	askMinScore  float64
	askMaxTokens int
	askStream    bool
	askJSON      bool
)

// Output styles for the answer view.
var (
	askHeadingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	askSourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	askCostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about indexed documents",
	Long: `Answers a natural-language question grounded in indexed documents.

Retrieval can be scoped to specific documents with --doc (repeatable) and
filtered by chunk type with --type. The answer cites its sources as [N]
markers matching the source list.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askDocuments, "doc", "d", nil, "restrict to document IDs (repeatable)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve")
	askCmd.Flags().StringVarP(&askType, "type", "t", "", "chunk type filter (text, table, image)")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", 0, "minimum similarity score")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "maximum answer length in tokens")
	askCmd.Flags().BoolVarP(&askStream, "stream", "s", false, "stream the answer as it is generated")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON (NDJSON events with --stream)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	if queryService == nil {
		return errors.New("query service not configured")
	}

	opts := driving.QueryOptions{
		DocumentIDs: askDocuments,
		TopK:        askTopK,
		ContentType: askType,
		MinScore:    askMinScore,
		MaxTokens:   askMaxTokens,
	}

	if askStream {
		return runAskStream(cmd, question, opts)
	}
	return runAskBuffered(cmd, question, opts)
}

func runAskBuffered(cmd *cobra.Command, question string, opts driving.QueryOptions) error {
	answer, err := queryService.Ask(cmd.Context(), question, opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}

	cmd.Println(askHeadingStyle.Render("Answer"))
	cmd.Println(answer.Text)
	cmd.Println()
	cmd.Println(askHeadingStyle.Render("Sources"))
	cmd.Println(askSourceStyle.Render(answer.FormatSources()))
	printCost(cmd, answer)
	return nil
}

func runAskStream(cmd *cobra.Command, question string, opts driving.QueryOptions) error {
	events, err := queryService.AskStream(cmd.Context(), question, opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		return streamNDJSON(cmd, events)
	}

	cmd.Println(askHeadingStyle.Render("Answer"))
	for event := range events {
		switch event.Type {
		case domain.StreamDelta:
			cmd.Print(event.Text)

		case domain.StreamDone:
			cmd.Println()
			cmd.Println()
			cmd.Println(askHeadingStyle.Render("Sources"))
			answer := domain.Answer{Sources: event.Sources, ModelID: event.ModelID}
			if event.Usage != nil {
				answer.Usage = *event.Usage
			}
			cmd.Println(askSourceStyle.Render(answer.FormatSources()))
			printCost(cmd, &answer)

		case domain.StreamError:
			cmd.Println()
			return fmt.Errorf("query failed: %s", event.Err)
		}
	}
	return nil
}

// streamNDJSON writes each event as one JSON line.
func streamNDJSON(cmd *cobra.Command, events <-chan domain.StreamEvent) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	for event := range events {
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		if event.Type == domain.StreamError {
			return fmt.Errorf("query failed: %s", event.Err)
		}
	}
	return nil
}

// answerJSON is the machine-readable projection of a buffered answer.
type answerJSON struct {
	Question     string       `json:"question"`
	Answer       string       `json:"answer"`
	Sources      []sourceJSON `json:"sources"`
	ModelID      string       `json:"model_id"`
	InputTokens  int          `json:"input_tokens"`
	OutputTokens int          `json:"output_tokens"`
}

type sourceJSON struct {
	DocumentID  string   `json:"document_id"`
	Filename    string   `json:"filename"`
	Heading     string   `json:"heading,omitempty"`
	SectionPath []string `json:"section_path,omitempty"`
	Pages       []int    `json:"pages,omitempty"`
	ContentType string   `json:"content_type"`
	Score       float64  `json:"score"`
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	out := answerJSON{
		Question:     answer.Question,
		Answer:       answer.Text,
		Sources:      make([]sourceJSON, len(answer.Sources)),
		ModelID:      answer.ModelID,
		InputTokens:  answer.Usage.InputTokens,
		OutputTokens: answer.Usage.OutputTokens,
	}
	for i, s := range answer.Sources {
		out.Sources[i] = sourceJSON{
			DocumentID:  s.Chunk.DocumentID,
			Filename:    s.Filename,
			Heading:     s.Chunk.Heading,
			SectionPath: s.Chunk.SectionPath,
			Pages:       s.Chunk.Pages,
			ContentType: string(s.Chunk.ContentType),
			Score:       s.Score,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printCost(cmd *cobra.Command, answer *domain.Answer) {
	cost := answer.EstimatedCostUSD()
	if cost <= 0 {
		return
	}
	cmd.Println()
	cmd.Println(askCostStyle.Render(fmt.Sprintf("%d in / %d out tokens, ~$%.4f",
		answer.Usage.InputTokens, answer.Usage.OutputTokens, cost)))
}
