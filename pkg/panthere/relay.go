package panthere

import "context"

// DefaultSessionID is used when a caller does not supply a session identifier.
const DefaultSessionID = "default"

// Relay is the shared "receive text, call model, return text" contract.
//
// The HTTP front end and the chat-platform front end are both adapters over
// this interface; they differ only in the state they keep between calls.
type Relay interface {
	// Send relays one user message and returns the model reply.
	Send(ctx context.Context, text string, rc RelayContext) (Reply, error)
}

// RelayContext carries caller identity for one relay call.
type RelayContext struct {
	// SessionID scopes conversation history. Stateless relays ignore it.
	SessionID string
	// SenderID identifies the human author when known.
	SenderID string
	// ConversationID identifies the originating chat channel when known.
	ConversationID string
}

// Reply is the outcome of one successful relay call.
type Reply struct {
	// Text is the visible reply after directive lines were stripped.
	Text string
	// SessionID is the session the exchange was recorded under.
	SessionID string
	// Charge is the usage and cost attributed to this call.
	Charge UsageCharge
	// Budget is the ledger state right after this call was charged.
	Budget BudgetStatus
	// MemoriesSaved lists every memory persisted from this reply, in reply order.
	MemoriesSaved []string
}

// LastMemorySaved returns the last persisted memory, or "" when none was saved.
func (r Reply) LastMemorySaved() string {
	if len(r.MemoriesSaved) == 0 {
		return ""
	}

	return r.MemoriesSaved[len(r.MemoriesSaved)-1]
}
