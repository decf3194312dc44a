package panthere

import "context"

// EventHandler processes a single neutral inbound event.
type EventHandler func(ctx context.Context, event *Event) error

// Driver adapts an external chat platform into neutral events.
//
// Drivers own transport and acknowledgement concerns; handlers only ever see
// Event values.
type Driver interface {
	// Name returns a stable driver identifier.
	Name() string
	// Start consumes platform updates and invokes handler for each message.
	// It returns only after context cancellation or a fatal transport error.
	Start(ctx context.Context, handler EventHandler) error
}
