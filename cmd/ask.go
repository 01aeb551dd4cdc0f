package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aakashium/shopassist/internal/app"
	"github.com/aakashium/shopassist/internal/config"
	"github.com/aakashium/shopassist/internal/session"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing application", "error", err)
		}
	}()

	question := strings.Join(args, " ")

	// One-shot session: the transcript exists only for this single turn.
	answer, err := a.Assistant.Answer(ctx, session.NewHistory(), question)
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	fmt.Println(answer)
	return nil
}
