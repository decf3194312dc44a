package panthere

import "context"

// MaxSessionTurns bounds how many turns a session keeps after each update.
const MaxSessionTurns = 20

// Turn is one recorded conversation entry.
type Turn struct {
	// Role is either LLMMessageRoleUser or LLMMessageRoleAssistant.
	Role LLMMessageRole
	// Content is the turn text as it was shown to the model or the user.
	Content string
}

// SessionExchangeFunc runs one exchange against a snapshot of session history.
//
// Returned turns are appended to the session only when the returned error is nil.
type SessionExchangeFunc func(ctx context.Context, history []Turn) ([]Turn, error)

// SessionStore keeps ordered conversation history keyed by session identifier.
//
// Implementations must serialise exchanges that target the same session so
// that concurrent callers cannot lose or duplicate turns.
type SessionStore interface {
	// Exchange runs fn with the current history and appends its result atomically.
	Exchange(ctx context.Context, sessionID string, fn SessionExchangeFunc) error
	// History returns a copy of the current session history.
	History(ctx context.Context, sessionID string) ([]Turn, error)
	// Clear drops all history for a session. Unknown sessions are not an error.
	Clear(ctx context.Context, sessionID string) error
}
