// Package chat drives the generative model for one conversation session.
//
// The model is stateless between calls: conversational memory exists only
// because the engine resends the full transcript every time, framed by the
// system persona. On any failure the transcript is left untouched, so every
// stored turn pair is complete.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/aakashium/shopassist/internal/session"
)

// ErrGeneration indicates the generative model call failed, timed out or
// returned empty text. Per-turn, retryable.
var ErrGeneration = errors.New("generation failed")

// Generator produces a model reply for an ordered message list.
// Defined by the consumer; production uses GenkitGenerator.
type Generator interface {
	Generate(ctx context.Context, msgs []*ai.Message) (string, error)
}

// GenkitGenerator generates replies through Genkit with a fixed model.
type GenkitGenerator struct {
	G         *genkit.Genkit
	ModelName string // provider-qualified, e.g. "googleai/gemini-2.0-flash"
}

// Generate sends the messages to the configured model and returns its text.
func (g *GenkitGenerator) Generate(ctx context.Context, msgs []*ai.Message) (string, error) {
	resp, err := genkit.Generate(ctx, g.G,
		ai.WithModelName(g.ModelName),
		ai.WithMessages(msgs...),
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Config contains the engine's construction parameters.
type Config struct {
	Generator Generator
	Logger    *slog.Logger

	// MaxHistoryTurns bounds how many transcript turns are replayed per
	// call (sliding window over the most recent turns). The stored
	// transcript itself is never trimmed. 0 means unbounded.
	MaxHistoryTurns int

	// Resilience configuration
	Retry       *RetryConfig  // nil uses defaults; MaxRetries 0 disables retries
	RateLimiter *rate.Limiter // nil = use default
}

// Engine is the conversation engine.
//
// Configuration is captured immutably at construction; the per-session
// transcript passed to Respond carries its own lock, so one Engine serves
// any number of sessions concurrently.
type Engine struct {
	gen             Generator
	maxHistoryTurns int
	retry           RetryConfig
	limiter         *rate.Limiter
	logger          *slog.Logger
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retryCfg := DefaultRetryConfig()
	if cfg.Retry != nil {
		retryCfg = *cfg.Retry
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		// 10 requests/sec sustained, burst of 30
		limiter = rate.NewLimiter(10, 30)
	}
	return &Engine{
		gen:             cfg.Generator,
		maxHistoryTurns: cfg.MaxHistoryTurns,
		retry:           retryCfg,
		limiter:         limiter,
		logger:          logger,
	}, nil
}

// Respond sends the composed prompt to the model with the session's full
// transcript replayed as chat history, then appends the exchange.
//
// query is the literal user query; it, not the composed prompt, is what
// gets recorded as the user turn. On any error the transcript length is
// unchanged.
func (e *Engine) Respond(ctx context.Context, hist *session.History, systemMessage, query, prompt string) (string, error) {
	if hist == nil {
		return "", errors.New("history is required")
	}

	msgs := e.buildMessages(hist, systemMessage, prompt)

	answer, err := e.generateWithRetry(ctx, msgs)
	if err != nil {
		return "", err
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: model returned empty text", ErrGeneration)
	}

	// Append only after a complete, non-empty reply.
	hist.Add(query, answer)

	e.logger.Debug("turn completed",
		"session_id", hist.ID(),
		"transcript_turns", hist.Len(),
	)
	return answer, nil
}

// buildMessages reconstructs the model input: one framing turn carrying the
// system message, every replayed transcript turn in original order with
// role preserved, then the prompt as the triggering user message.
func (e *Engine) buildMessages(hist *session.History, systemMessage, prompt string) []*ai.Message {
	turns := hist.Turns()
	if e.maxHistoryTurns > 0 && len(turns) > e.maxHistoryTurns {
		turns = turns[len(turns)-e.maxHistoryTurns:]
	}

	msgs := make([]*ai.Message, 0, len(turns)+2)
	msgs = append(msgs, ai.NewSystemTextMessage(systemMessage))
	for _, t := range turns {
		switch t.Role {
		case session.RoleAssistant:
			msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(t.Text)))
		default:
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(t.Text)))
		}
	}
	msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(prompt)))
	return msgs
}
