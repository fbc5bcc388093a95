package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

var jobsJSON bool

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List indexing jobs",
	Long:  `Lists all indexing jobs from this process, newest first.`,
	RunE:  runJobs,
}

func init() {
	jobsCmd.Flags().BoolVar(&jobsJSON, "json", false, "output jobs as JSON")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, _ []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	jobs := indexingService.Jobs()

	if jobsJSON {
		return outputJobsJSON(cmd, jobs)
	}

	if len(jobs) == 0 {
		cmd.Println("No jobs.")
		return nil
	}

	for _, job := range jobs {
		cmd.Printf("  %s  %-8s %4.0f%%  %s\n", job.ID, job.Status, job.Progress*100, job.Filename)
		if job.Status == domain.JobError {
			cmd.Printf("      error: %s\n", job.Err)
		}
	}
	return nil
}
