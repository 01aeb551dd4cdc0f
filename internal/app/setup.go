package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aakashium/shopassist/internal/assistant"
	"github.com/aakashium/shopassist/internal/catalog"
	"github.com/aakashium/shopassist/internal/chat"
	"github.com/aakashium/shopassist/internal/config"
	"github.com/aakashium/shopassist/internal/embed"
	"github.com/aakashium/shopassist/internal/index"
	"github.com/aakashium/shopassist/internal/pipeline"
	"github.com/aakashium/shopassist/internal/rag"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}
	a.DBPool = pool
	a.Catalog = catalog.New(pool, logger.With("component", "catalog"))

	idx, err := index.New(cfg.QdrantHost, cfg.QdrantPort, cfg.IndexName, cfg.Dimension, cfg.Metric,
		index.WithLogger(logger.With("component", "index")))
	if err != nil {
		return nil, fmt.Errorf("creating index client: %w", err)
	}
	a.Index = idx

	batcher, err := embed.New(embedder, cfg.BatchSize, cfg.Dimension, logger.With("component", "embed"))
	if err != nil {
		return nil, err
	}

	a.Pipeline, err = pipeline.New(a.Catalog, batcher, idx, cfg.SyncWorkers, logger.With("component", "pipeline"))
	if err != nil {
		return nil, err
	}

	a.Retriever, err = rag.New(embedder, idx, cfg.TopK, cfg.MinScore, logger.With("component", "rag"))
	if err != nil {
		return nil, err
	}

	a.Engine, err = chat.New(chat.Config{
		Generator: &chat.GenkitGenerator{
			G:         g,
			ModelName: "googleai/" + cfg.ModelName,
		},
		Logger:          logger.With("component", "chat"),
		MaxHistoryTurns: cfg.MaxHistoryTurns,
	})
	if err != nil {
		return nil, err
	}

	a.Assistant, err = assistant.New(a.Retriever, a.Engine, logger.With("component", "assistant"))
	if err != nil {
		return nil, err
	}

	logger.Debug("application initialized",
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel,
		"index", cfg.IndexName,
	)
	return a, nil
}

// provideGenkit initializes Genkit with the Gemini provider.
// The API key comes from config, not from ambient environment lookups
// inside components.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	g := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.GeminiAPIKey}),
	)
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}
	return g, nil
}
