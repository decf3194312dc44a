package panthere

import "errors"

var (
	// ErrEmptyMessage indicates that a relay call carried no user text.
	ErrEmptyMessage = errors.New("panthere: no message provided")
	// ErrProviderUnavailable indicates that no model credential or provider is configured.
	ErrProviderUnavailable = errors.New("panthere: model provider not configured")
	// ErrBudgetExceeded indicates that the usage ledger reached the budget ceiling.
	ErrBudgetExceeded = errors.New("panthere: budget limit reached")
	// ErrGeneration indicates that the remote model call failed.
	ErrGeneration = errors.New("panthere: model generation failed")
	// ErrInvalidEvent indicates that an inbound chat event does not satisfy protocol invariants.
	ErrInvalidEvent = errors.New("panthere: invalid event")
	// ErrInvalidOutboundRequest indicates that an outbound request is malformed.
	ErrInvalidOutboundRequest = errors.New("panthere: invalid outbound request")
	// ErrOutboundUnsupported indicates that no sink can deliver an outbound request.
	ErrOutboundUnsupported = errors.New("panthere: outbound operation unsupported")
)
