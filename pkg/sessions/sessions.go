// Package sessions keeps the conversation history of chat sessions between messages.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/blitz/pkg/models"
)

const (
	// DefaultMaxMessages caps the stored history of one session.
	DefaultMaxMessages = 50
	// DefaultTTL is how long an idle session is kept.
	DefaultTTL = 24 * time.Hour
)

// ErrInvalidSessionID indicates a session identifier that cannot be stored.
var ErrInvalidSessionID = errors.New("invalid session id")

// Store persists conversation history per session. History of an unknown session is empty.
type Store interface {
	History(ctx context.Context, sessionID string) ([]models.ConversationMessage, error)
	Append(ctx context.Context, sessionID string, messages ...models.ConversationMessage) error
	Close() error
}

// Pruner is implemented by stores that cannot expire sessions on their own.
type Pruner interface {
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

// SessionError wraps session store errors with additional context.
type SessionError struct {
	Op        string
	SessionID string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s operation failed for session %s: %v", e.Op, e.SessionID, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new session error with context.
func NewSessionError(op, sessionID string, err error) *SessionError {
	return &SessionError{Op: op, SessionID: sessionID, Err: err}
}

// ValidateSessionID rejects empty identifiers and ones that could escape a storage namespace.
func ValidateSessionID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > 255 {
		return ErrInvalidSessionID
	}

	if strings.ContainsAny(id, `/\:`) || strings.Contains(id, "..") {
		return ErrInvalidSessionID
	}

	return nil
}

// Tail returns the last limit messages.
func Tail(messages []models.ConversationMessage, limit int) []models.ConversationMessage {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}

	return messages[len(messages)-limit:]
}

// Exchange is the user message and assistant reply of one completed run.
func Exchange(userMessage, reply string) []models.ConversationMessage {
	return []models.ConversationMessage{
		{Role: models.ConversationUser, Content: userMessage},
		{Role: models.ConversationAssistant, Content: reply},
	}
}
