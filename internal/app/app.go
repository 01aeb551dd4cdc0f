// Package app provides application initialization and dependency injection.
//
// App is the container that wires configuration, the Gemini models, the
// PostgreSQL catalog, the Qdrant index and the conversation engine. It is
// constructed once in Setup and passed by reference; there are no ambient
// singletons.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aakashium/shopassist/internal/assistant"
	"github.com/aakashium/shopassist/internal/catalog"
	"github.com/aakashium/shopassist/internal/chat"
	"github.com/aakashium/shopassist/internal/config"
	"github.com/aakashium/shopassist/internal/index"
	"github.com/aakashium/shopassist/internal/pipeline"
	"github.com/aakashium/shopassist/internal/rag"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool
	Index    *index.Client

	// Domain components
	Catalog   *catalog.Store
	Pipeline  *pipeline.Pipeline
	Retriever *rag.Retriever
	Engine    *chat.Engine
	Assistant *assistant.Assistant
}

// Close gracefully releases all resources.
func (a *App) Close() error {
	a.Logger.Debug("shutting down application")

	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			return err
		}
	}
	return nil
}
