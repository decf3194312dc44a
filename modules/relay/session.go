package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"petit-panthere/modules/notes"
	"petit-panthere/pkg/panthere"
)

// SessionOption mutates SessionRelay configuration.
type SessionOption func(*SessionRelay)

// WithSessionLogger injects the relay logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(relay *SessionRelay) {
		if logger != nil {
			relay.logger = logger
		}
	}
}

// WithNoteSink enables SAVE_MEMORY persistence. Without a sink directives are
// still stripped from replies but nothing is written.
func WithNoteSink(sink panthere.NoteSink) SessionOption {
	return func(relay *SessionRelay) {
		relay.notes = sink
	}
}

// SessionRelay is the stateful relay behind the HTTP surface.
type SessionRelay struct {
	persona  Persona
	provider panthere.LLMProvider
	sessions panthere.SessionStore
	budget   panthere.BudgetTracker
	notes    panthere.NoteSink
	logger   *slog.Logger
}

// NewSessionRelay creates a session relay.
//
// provider may be nil when no model credential is configured; every Send then
// fails with panthere.ErrProviderUnavailable.
func NewSessionRelay(
	persona Persona,
	provider panthere.LLMProvider,
	sessions panthere.SessionStore,
	budget panthere.BudgetTracker,
	options ...SessionOption,
) (*SessionRelay, error) {
	if err := persona.Validate(); err != nil {
		return nil, fmt.Errorf("new session relay: %w", err)
	}
	if sessions == nil {
		return nil, fmt.Errorf("new session relay: nil session store")
	}
	if budget == nil {
		return nil, fmt.Errorf("new session relay: nil budget tracker")
	}

	relay := &SessionRelay{
		persona:  persona,
		provider: provider,
		sessions: sessions,
		budget:   budget,
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(relay)
	}

	return relay, nil
}

// Send relays one message within rc.SessionID.
//
// Checks run in order: empty message, missing provider, exhausted budget. None
// of them touch session history or the ledger. A failed model call leaves the
// session exactly as it was.
func (r *SessionRelay) Send(ctx context.Context, text string, rc panthere.RelayContext) (panthere.Reply, error) {
	if strings.TrimSpace(text) == "" {
		return panthere.Reply{}, panthere.ErrEmptyMessage
	}
	if r.provider == nil {
		return panthere.Reply{}, panthere.ErrProviderUnavailable
	}
	if err := r.budget.Allow(); err != nil {
		return panthere.Reply{}, err
	}

	sessionID := strings.TrimSpace(rc.SessionID)
	if sessionID == "" {
		sessionID = panthere.DefaultSessionID
	}

	var reply panthere.Reply
	err := r.sessions.Exchange(ctx, sessionID, func(ctx context.Context, history []panthere.Turn) ([]panthere.Turn, error) {
		resp, err := r.persona.generate(ctx, r.provider, history, text)
		if err != nil {
			return nil, err
		}

		extraction := notes.Extract(resp.Text)
		saved := r.persist(ctx, sessionID, extraction.Memories)
		charge, status := r.budget.Charge(r.persona.Model, resp.Usage)

		reply = panthere.Reply{
			Text:          extraction.Visible,
			SessionID:     sessionID,
			Charge:        charge,
			Budget:        status,
			MemoriesSaved: saved,
		}

		return []panthere.Turn{
			{Role: panthere.LLMMessageRoleUser, Content: text},
			{Role: panthere.LLMMessageRoleAssistant, Content: extraction.Visible},
		}, nil
	})
	if err != nil {
		return panthere.Reply{}, fmt.Errorf("relay session %s: %w", sessionID, err)
	}

	r.logger.DebugContext(ctx, "relay exchange completed",
		"session_id", sessionID,
		"input_tokens", reply.Charge.InputTokens,
		"output_tokens", reply.Charge.OutputTokens,
		"message_cost", reply.Charge.Cost.String(),
		"total_cost", reply.Budget.Ledger.TotalCost.String(),
		"memories_saved", len(reply.MemoriesSaved),
	)

	return reply, nil
}

// persist writes every memory and returns the ones that were stored. A write
// failure is logged and does not fail the reply.
func (r *SessionRelay) persist(ctx context.Context, sessionID string, memories []string) []string {
	if r.notes == nil || len(memories) == 0 {
		return nil
	}

	saved := make([]string, 0, len(memories))
	for _, memory := range memories {
		entry, err := r.notes.Append(ctx, memory)
		if err != nil {
			r.logger.WarnContext(ctx, "save memory failed",
				"session_id", sessionID,
				"error", err,
			)
			continue
		}
		r.logger.InfoContext(ctx, "memory saved",
			"session_id", sessionID,
			"path", entry.Path,
		)
		saved = append(saved, entry.Text)
	}

	return saved
}

// Clear drops one session's history.
func (r *SessionRelay) Clear(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		sessionID = panthere.DefaultSessionID
	}
	if err := r.sessions.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clear session %s: %w", sessionID, err)
	}

	return nil
}

// Usage returns the current ledger against the budget ceiling.
func (r *SessionRelay) Usage() panthere.BudgetStatus {
	return r.budget.Status()
}

// ProviderConfigured reports whether a model provider is bound.
func (r *SessionRelay) ProviderConfigured() bool {
	return r.provider != nil
}

var _ panthere.Relay = (*SessionRelay)(nil)
