package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/adapters/driving/watch"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and index new PDFs",
	Long: `Watches a directory and automatically indexes PDF files as they appear.

Existing PDFs in the directory are submitted on startup. New and modified
files are indexed after they stop changing for the settle period. Content
deduplication makes repeated submissions of unchanged files cheap.

Press Ctrl+C to stop watching.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettleDelay,
		"time a file must be stable before indexing")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}

	dir := args[0]
	watcher, err := watch.NewWatcher(indexingService, dir, watch.WithSettleDelay(watchSettle))
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s for PDF files...\n", dir)
	return watcher.Run(cmd.Context())
}
