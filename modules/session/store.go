// Package session provides the in-memory conversation history store used by
// the HTTP relay. Sessions are created on first use, live for the lifetime of
// the process, and keep only their most recent turns.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"petit-panthere/pkg/panthere"
)

// Option mutates store configuration.
type Option func(*Store)

// WithMaxTurns overrides how many turns each session retains.
func WithMaxTurns(maxTurns int) Option {
	return func(store *Store) {
		if maxTurns > 0 {
			store.maxTurns = maxTurns
		}
	}
}

// Store is a concurrency-safe panthere.SessionStore held in process memory.
//
// Exchanges on one session run one at a time; different sessions proceed in
// parallel.
type Store struct {
	maxTurns int

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu    sync.Mutex
	turns []panthere.Turn
}

// New creates an empty session store.
func New(options ...Option) *Store {
	store := &Store{
		maxTurns: panthere.MaxSessionTurns,
		sessions: make(map[string]*sessionEntry),
	}
	for _, option := range options {
		option(store)
	}

	return store
}

// Exchange runs fn against a snapshot of the session history and appends the
// returned turns only when fn succeeds.
func (s *Store) Exchange(ctx context.Context, sessionID string, fn panthere.SessionExchangeFunc) error {
	if fn == nil {
		return fmt.Errorf("session exchange: nil exchange func")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("session exchange: %w", err)
	}

	entry := s.entry(normalizeSessionID(sessionID), true)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	appended, err := fn(ctx, cloneTurns(entry.turns))
	if err != nil {
		return err
	}

	entry.turns = append(entry.turns, appended...)
	if overflow := len(entry.turns) - s.maxTurns; overflow > 0 {
		entry.turns = cloneTurns(entry.turns[overflow:])
	}

	return nil
}

// History returns a copy of the current session history.
func (s *Store) History(_ context.Context, sessionID string) ([]panthere.Turn, error) {
	entry := s.entry(normalizeSessionID(sessionID), false)
	if entry == nil {
		return nil, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return cloneTurns(entry.turns), nil
}

// Clear drops the session history. It waits for an in-flight exchange on the
// same session so the two never interleave.
func (s *Store) Clear(_ context.Context, sessionID string) error {
	entry := s.entry(normalizeSessionID(sessionID), false)
	if entry == nil {
		return nil
	}

	entry.mu.Lock()
	entry.turns = nil
	entry.mu.Unlock()

	return nil
}

func (s *Store) entry(sessionID string, create bool) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.sessions[sessionID]
	if !exists && create {
		entry = &sessionEntry{}
		s.sessions[sessionID] = entry
	}

	return entry
}

func normalizeSessionID(sessionID string) string {
	if trimmed := strings.TrimSpace(sessionID); trimmed != "" {
		return trimmed
	}

	return panthere.DefaultSessionID
}

func cloneTurns(turns []panthere.Turn) []panthere.Turn {
	if len(turns) == 0 {
		return nil
	}

	return append([]panthere.Turn(nil), turns...)
}

var _ panthere.SessionStore = (*Store)(nil)
