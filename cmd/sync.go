package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aakashium/shopassist/db"
	"github.com/aakashium/shopassist/internal/app"
	"github.com/aakashium/shopassist/internal/config"
)

var skipMigrate bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the product catalog into the vector index",
	Long: `Sync reads every row of the products table, embeds rows in batches and
upserts vectors plus display metadata into the vector index.

Upserts are idempotent by product id, so the sync is safe to re-run after
a partial failure; only the failed batches need the retry.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "skip database migrations before syncing")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !skipMigrate {
		if err := db.Migrate(cfg.DatabaseURL()); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
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

	report, err := a.Pipeline.Run(ctx)
	fmt.Printf("Synced %d/%d products in %d batches (%d failed)\n",
		report.Upserted, report.Products, report.Batches, report.FailedBatches)
	if err != nil {
		return fmt.Errorf("sync completed with failures: %w", err)
	}
	return nil
}
