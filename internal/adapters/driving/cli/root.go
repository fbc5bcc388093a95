// Package cli implements the docquery command line interface using cobra.
// Services are injected by main through SetServices before Execute runs;
// commands guard against missing services so partial wiring degrades into
// a clear error instead of a panic.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
)

// version is set at build time via -ldflags.
var version = "0.1.0"

// Services used by commands. Injected via SetServices.
var (
	indexingService driving.IndexingService
	documentService driving.DocumentService
	queryService    driving.QueryService
	settingsStore   driven.SettingsStore
)

// verboseFlag enables debug logging across all commands.
var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "docquery",
	Short: "Ask questions about your PDF documents",
	Long: `docquery indexes PDF documents and answers questions about them.

Documents are parsed, chunked along their section structure, embedded and
stored locally. Questions are answered by a language model grounded in the
most relevant passages, with page-level citations.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
}

// SetServices injects the application services. Any service may be nil;
// commands that need a missing service fail with a descriptive error.
func SetServices(
	indexing driving.IndexingService,
	document driving.DocumentService,
	query driving.QueryService,
	settings driven.SettingsStore,
) {
	indexingService = indexing
	documentService = document
	queryService = query
	settingsStore = settings
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
