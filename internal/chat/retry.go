package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
)

// RetryConfig configures the retry behavior for model calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category.
// Matched case-insensitively against err.Error().
//
// NOTE: string matching because the provider SDKs do not expose typed
// errors for transient failures. Re-evaluate if Genkit adds structured
// error types in a future version.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// retryableError reports whether err is transient and should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, group := range retryablePatterns {
		if containsAny(errStr, group...) {
			return true
		}
	}
	return false
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// generateWithRetry calls the generator with exponential backoff retry.
// Each attempt passes through the rate limiter first.
func (e *Engine) generateWithRetry(ctx context.Context, msgs []*ai.Message) (string, error) {
	var lastErr error
	delay := e.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("%w: rate limit wait: %v", ErrGeneration, err)
			}
		}

		answer, err := e.gen.Generate(ctx, msgs)
		if err == nil {
			e.logger.Debug("generation succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return answer, nil
		}

		lastErr = err

		if !retryableError(err) {
			return "", fmt.Errorf("%w: %v", ErrGeneration, err)
		}

		if attempt == e.retry.MaxRetries {
			break
		}

		e.logger.Debug("retrying after error",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: context canceled during retry: %v", ErrGeneration, ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, e.retry.MaxInterval)
		}
	}

	return "", fmt.Errorf("%w: after %d retries (elapsed: %v): %v",
		ErrGeneration, e.retry.MaxRetries, time.Since(start), lastErr)
}
