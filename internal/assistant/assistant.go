// Package assistant is the query-path facade: retrieve product context,
// compose the prompt, generate the answer, record the exchange.
//
// This is the exact surface the UI boundary consumes, with rag and prompt
// available as pure helpers beside it.
package assistant

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aakashium/shopassist/internal/prompt"
	"github.com/aakashium/shopassist/internal/session"
)

// ContextRetriever supplies the context block for a query.
type ContextRetriever interface {
	Context(ctx context.Context, query string) (string, error)
}

// Responder runs one model turn against a session transcript.
type Responder interface {
	Respond(ctx context.Context, hist *session.History, systemMessage, query, prompt string) (string, error)
}

// Assistant answers customer questions grounded in the product catalog.
type Assistant struct {
	retriever ContextRetriever
	engine    Responder
	logger    *slog.Logger
}

// New creates an Assistant.
func New(retriever ContextRetriever, engine Responder, logger *slog.Logger) (*Assistant, error) {
	if retriever == nil || engine == nil {
		return nil, errors.New("retriever and engine are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{retriever: retriever, engine: engine, logger: logger}, nil
}

// Answer runs one full turn: retrieval, composition, generation. On success
// the transcript has grown by exactly two turns; on failure it is unchanged.
//
// The persona travels as the conversation's system framing turn, so Compose
// receives an empty instructions block here.
func (a *Assistant) Answer(ctx context.Context, hist *session.History, query string) (string, error) {
	contextBlock, err := a.retriever.Context(ctx, query)
	if err != nil {
		return "", err
	}

	composed := prompt.Compose("", contextBlock, query)

	return a.engine.Respond(ctx, hist, prompt.SystemMessage, query, composed)
}
