// Package file stores chat sessions as JSON documents on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dukex/blitz/pkg/models"
	"github.com/dukex/blitz/pkg/sessions"
)

type document struct {
	ID        string                       `json:"id"`
	Messages  []models.ConversationMessage `json:"messages"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

// Store implements sessions.Store and sessions.Pruner on the file system.
type Store struct {
	root        string
	maxMessages int
	mu          sync.Mutex
}

var (
	_ sessions.Store  = (*Store)(nil)
	_ sessions.Pruner = (*Store)(nil)
)

// NewStore keeps at most maxMessages per session under root/sessions.
func NewStore(root string, maxMessages int) *Store {
	if maxMessages <= 0 {
		maxMessages = sessions.DefaultMaxMessages
	}

	return &Store{
		root:        strings.Replace(root, "file://", "", 1),
		maxMessages: maxMessages,
	}
}

// History returns the stored messages of sessionID, oldest first.
func (s *Store) History(_ context.Context, sessionID string) ([]models.ConversationMessage, error) {
	if err := sessions.ValidateSessionID(sessionID); err != nil {
		return nil, sessions.NewSessionError("History", sessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(sessionID)
	if err != nil {
		return nil, err
	}

	return doc.Messages, nil
}

// Append adds messages to sessionID and drops the oldest beyond the cap.
func (s *Store) Append(_ context.Context, sessionID string, messages ...models.ConversationMessage) error {
	if err := sessions.ValidateSessionID(sessionID); err != nil {
		return sessions.NewSessionError("Append", sessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(sessionID)
	if err != nil {
		return err
	}

	doc.Messages = sessions.Tail(append(doc.Messages, messages...), s.maxMessages)
	doc.UpdatedAt = time.Now().UTC()

	return s.write(doc)
}

// Prune removes sessions not updated since olderThan.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := fs.Glob(os.DirFS(s.dir()), "*.json")
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	removed := 0

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		doc, err := s.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return removed, err
		}

		if !doc.UpdatedAt.Before(olderThan) {
			continue
		}

		if err := os.Remove(s.path(doc.ID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove session %s: %w", doc.ID, err)
		}

		removed++
	}

	return removed, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) read(sessionID string) (*document, error) {
	body, err := os.ReadFile(s.path(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return &document{ID: sessionID, Messages: []models.ConversationMessage{}}, nil
	}

	if err != nil {
		return nil, sessions.NewSessionError("read", sessionID, err)
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, sessions.NewSessionError("read", sessionID, err)
	}

	doc.ID = sessionID

	return &doc, nil
}

func (s *Store) write(doc *document) error {
	if err := os.MkdirAll(s.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return sessions.NewSessionError("write", doc.ID, err)
	}

	if err := os.WriteFile(s.path(doc.ID), data, 0600); err != nil {
		return sessions.NewSessionError("write", doc.ID, err)
	}

	return nil
}

func (s *Store) dir() string {
	return filepath.Join(s.root, "sessions")
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir(), sessionID+".json")
}
