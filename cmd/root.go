// Package cmd implements the shopassist command line interface.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	applog "github.com/aakashium/shopassist/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "shopassist",
	Short: "Shop catalog assistant - catalog-grounded customer chat",
	Long: `Shopassist answers customer questions about the product catalog.

It synchronizes catalog rows into a vector index and grounds every answer
in the most relevant product it can retrieve. Running shopassist without a
subcommand starts an interactive chat session.`,
	RunE: runChat,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger builds the process logger. DEBUG env var (any value) enables
// debug-level output. Logs go to stderr; stdout is reserved for answers.
func initLogger() applog.Logger {
	cfg := applog.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return applog.New(cfg)
}
