// Package session owns the conversation transcript.
//
// A transcript is an append-only, ordered log of user/assistant turns for
// one session. Roles are structured data set at append time, never inferred
// from message text. Transcripts live in memory only and are discarded when
// the session ends.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Role constants define valid turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one transcript entry: who spoke and what they said.
type Turn struct {
	Role string
	Text string
}

// History encapsulates a session's transcript with thread-safe access.
// Appends are serialized by the internal lock, preserving append ordering
// when the surrounding application allows concurrent queries.
//
// The zero value is NOT useful - use NewHistory() to create instances.
type History struct {
	id    uuid.UUID
	mu    sync.RWMutex
	turns []Turn
}

// NewHistory creates an empty transcript with a fresh session id.
func NewHistory() *History {
	return &History{
		id:    uuid.New(),
		turns: make([]Turn, 0),
	}
}

// ID returns the session identifier.
func (h *History) ID() uuid.UUID {
	return h.id
}

// Add appends a complete exchange: the user's query and the assistant's
// answer, in that order. The pair is appended atomically so the transcript
// never holds a half-written exchange.
func (h *History) Add(userText, assistantText string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns,
		Turn{Role: RoleUser, Text: userText},
		Turn{Role: RoleAssistant, Text: assistantText},
	)
}

// Turns returns a copy of the transcript in original order.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]Turn, len(h.turns))
	copy(result, h.turns)
	return result
}

// Len returns the number of turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Clear removes all turns, keeping the session id.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = make([]Turn, 0)
}
