package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

var (
	indexWait bool
	indexJSON bool
)

// indexPollInterval is how often --wait refreshes job progress.
const indexPollInterval = 200 * time.Millisecond

var indexCmd = &cobra.Command{
	Use:   "index [files...]",
	Short: "Index PDF documents",
	Long: `Submits one or more PDF files for indexing.

Indexing runs in the background: each file gets a job whose progress can be
checked with 'docquery jobs'. Files already indexed (byte-identical content)
are deduplicated and complete immediately.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexWait, "wait", "w", false, "wait for indexing to finish")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output job status as JSON")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	ctx := cmd.Context()
	jobs := make([]*domain.Job, 0, len(args))

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		job, err := indexingService.Submit(ctx, data, filepath.Base(path))
		if err != nil {
			return fmt.Errorf("failed to submit %s: %w", path, err)
		}
		jobs = append(jobs, job)

		if !indexJSON {
			cmd.Printf("Submitted %s (job %s)\n", job.Filename, job.ID)
		}
	}

	if !indexWait {
		if indexJSON {
			return outputJobsJSON(cmd, jobs)
		}
		cmd.Println("\nRun 'docquery jobs' to check progress.")
		return nil
	}

	final := make([]*domain.Job, 0, len(jobs))
	for _, job := range jobs {
		done, err := waitForJob(cmd, job.ID)
		if err != nil {
			return err
		}
		final = append(final, done)
	}

	if indexJSON {
		return outputJobsJSON(cmd, final)
	}

	var failed int
	for _, job := range final {
		printJobResult(cmd, job)
		if job.Status == domain.JobError {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to index", failed, len(final))
	}
	return nil
}

// waitForJob polls the job until it reaches a terminal state, redrawing a
// single progress line.
func waitForJob(cmd *cobra.Command, id string) (*domain.Job, error) {
	ctx := cmd.Context()
	ticker := time.NewTicker(indexPollInterval)
	defer ticker.Stop()

	for {
		job, ok := indexingService.Job(id)
		if !ok {
			return nil, fmt.Errorf("job %s not found", id)
		}

		if job.Status.IsTerminal() {
			if !indexJSON {
				cmd.Printf("\r%-60s\r", "")
			}
			return job, nil
		}

		if !indexJSON {
			cmd.Printf("\r  %s: %s (%.0f%%)   ", job.Filename, job.Stage, job.Progress*100)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func printJobResult(cmd *cobra.Command, job *domain.Job) {
	switch {
	case job.Status == domain.JobError:
		cmd.Printf("FAILED  %s: %s\n", job.Filename, job.Err)
	case job.AlreadyIndexed:
		cmd.Printf("OK      %s: already indexed (document %s)\n", job.Filename, job.DocumentID)
	default:
		cmd.Printf("OK      %s: %d chunks (%d text, %d tables, %d images), document %s\n",
			job.Filename, job.Counts.Total(), job.Counts.Text, job.Counts.Table,
			job.Counts.Image, job.DocumentID)
	}
}

// jobJSON is the machine-readable projection of a job.
type jobJSON struct {
	ID             string  `json:"id"`
	Filename       string  `json:"filename"`
	Status         string  `json:"status"`
	Progress       float64 `json:"progress"`
	Stage          string  `json:"stage,omitempty"`
	DocumentID     string  `json:"document_id,omitempty"`
	AlreadyIndexed bool    `json:"already_indexed,omitempty"`
	TextChunks     int     `json:"text_chunks"`
	TableChunks    int     `json:"table_chunks"`
	ImageChunks    int     `json:"image_chunks"`
	Error          string  `json:"error,omitempty"`
}

func toJobJSON(job *domain.Job) jobJSON {
	return jobJSON{
		ID:             job.ID,
		Filename:       job.Filename,
		Status:         string(job.Status),
		Progress:       job.Progress,
		Stage:          job.Stage,
		DocumentID:     job.DocumentID,
		AlreadyIndexed: job.AlreadyIndexed,
		TextChunks:     job.Counts.Text,
		TableChunks:    job.Counts.Table,
		ImageChunks:    job.Counts.Image,
		Error:          job.Err,
	}
}

func outputJobsJSON(cmd *cobra.Command, jobs []*domain.Job) error {
	out := make([]jobJSON, len(jobs))
	for i, job := range jobs {
		out[i] = toJobJSON(job)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal jobs: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
