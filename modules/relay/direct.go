package relay

import (
	"context"
	"fmt"
	"strings"

	"petit-panthere/pkg/panthere"

	"github.com/shopspring/decimal"
)

// DirectRelay is the stateless single-turn relay used by chat platforms.
//
// It keeps no history, applies no budget, and does not interpret directives.
type DirectRelay struct {
	persona  Persona
	provider panthere.LLMProvider
}

// NewDirectRelay creates a direct relay. provider may be nil, in which case
// every Send fails with panthere.ErrProviderUnavailable.
func NewDirectRelay(persona Persona, provider panthere.LLMProvider) (*DirectRelay, error) {
	if err := persona.Validate(); err != nil {
		return nil, fmt.Errorf("new direct relay: %w", err)
	}

	return &DirectRelay{persona: persona, provider: provider}, nil
}

// Send relays one message with no prior context.
func (r *DirectRelay) Send(ctx context.Context, text string, _ panthere.RelayContext) (panthere.Reply, error) {
	if strings.TrimSpace(text) == "" {
		return panthere.Reply{}, panthere.ErrEmptyMessage
	}
	if r.provider == nil {
		return panthere.Reply{}, panthere.ErrProviderUnavailable
	}

	resp, err := r.persona.generate(ctx, r.provider, nil, text)
	if err != nil {
		return panthere.Reply{}, fmt.Errorf("relay direct: %w", err)
	}

	return panthere.Reply{
		Text: resp.Text,
		Charge: panthere.UsageCharge{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			Cost:         decimal.Zero,
		},
	}, nil
}

var _ panthere.Relay = (*DirectRelay)(nil)
