// Package budget accumulates model token usage into a process-wide ledger and
// rejects further calls once the ledger reaches a monetary ceiling.
package budget

import (
	"fmt"
	"strings"
	"sync"

	"petit-panthere/pkg/panthere"

	"github.com/shopspring/decimal"
)

var tokensPerRateUnit = decimal.NewFromInt(1_000_000)

// DefaultLimit is the ceiling applied when none is configured.
var DefaultLimit = decimal.RequireFromString("5.00")

// Rate is the USD price per million tokens for one model family.
type Rate struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// Cost prices one call's token counts.
func (r Rate) Cost(usage panthere.LLMUsage) decimal.Decimal {
	input := decimal.NewFromInt(usage.InputTokens).Div(tokensPerRateUnit).Mul(r.Input)
	output := decimal.NewFromInt(usage.OutputTokens).Div(tokensPerRateUnit).Mul(r.Output)

	return input.Add(output)
}

// SonnetRate is the fallback for models missing from the rate table.
var SonnetRate = Rate{Input: decimal.NewFromInt(3), Output: decimal.NewFromInt(15)}

// defaultRates is keyed by model-name prefix; the longest matching prefix wins.
var defaultRates = map[string]Rate{
	"claude-sonnet":    SonnetRate,
	"claude-opus-4":    {Input: decimal.NewFromInt(15), Output: decimal.NewFromInt(75)},
	"claude-opus-4-5":  {Input: decimal.NewFromInt(5), Output: decimal.NewFromInt(25)},
	"claude-opus-4-6":  {Input: decimal.NewFromInt(5), Output: decimal.NewFromInt(25)},
	"claude-haiku-4":   {Input: decimal.NewFromInt(1), Output: decimal.NewFromInt(5)},
	"claude-3-5-haiku": {Input: decimal.RequireFromString("0.80"), Output: decimal.NewFromInt(4)},
}

// Option mutates tracker configuration.
type Option func(*Tracker)

// WithLimit overrides the monetary ceiling.
func WithLimit(limit decimal.Decimal) Option {
	return func(tracker *Tracker) {
		if limit.IsPositive() {
			tracker.limit = limit
		}
	}
}

// WithRate registers or replaces the rate for a model-name prefix.
func WithRate(modelPrefix string, rate Rate) Option {
	return func(tracker *Tracker) {
		if prefix := strings.TrimSpace(modelPrefix); prefix != "" {
			tracker.rates[prefix] = rate
		}
	}
}

// WithFallbackRate overrides the rate used for unknown models.
func WithFallbackRate(rate Rate) Option {
	return func(tracker *Tracker) {
		tracker.fallback = rate
	}
}

// Tracker is a concurrency-safe panthere.BudgetTracker.
//
// Allow and Charge are separate steps, so calls admitted concurrently may
// overshoot the limit by at most their own cost.
type Tracker struct {
	limit    decimal.Decimal
	rates    map[string]Rate
	fallback Rate

	mu     sync.Mutex
	ledger panthere.UsageLedger
}

// New creates a tracker with an empty ledger.
func New(options ...Option) *Tracker {
	tracker := &Tracker{
		limit:    DefaultLimit,
		rates:    make(map[string]Rate, len(defaultRates)),
		fallback: SonnetRate,
		ledger:   panthere.UsageLedger{TotalCost: decimal.Zero},
	}
	for prefix, rate := range defaultRates {
		tracker.rates[prefix] = rate
	}
	for _, option := range options {
		option(tracker)
	}

	return tracker
}

// Allow reports whether another model call may start.
func (t *Tracker) Allow() error {
	status := t.Status()
	if status.Exhausted() {
		return fmt.Errorf(
			"budget allow: spent $%s of $%s: %w",
			status.Ledger.TotalCost.StringFixed(4),
			status.Limit.StringFixed(2),
			panthere.ErrBudgetExceeded,
		)
	}

	return nil
}

// Charge records one successful call.
func (t *Tracker) Charge(model string, usage panthere.LLMUsage) (panthere.UsageCharge, panthere.BudgetStatus) {
	usage = panthere.LLMUsage{
		InputTokens:  max(usage.InputTokens, 0),
		OutputTokens: max(usage.OutputTokens, 0),
	}
	charge := panthere.UsageCharge{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		Cost:         t.RateFor(model).Cost(usage),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.ledger.InputTokens += charge.InputTokens
	t.ledger.OutputTokens += charge.OutputTokens
	t.ledger.TotalCost = t.ledger.TotalCost.Add(charge.Cost)

	return charge, t.statusLocked()
}

// Status returns the current ledger and ceiling.
func (t *Tracker) Status() panthere.BudgetStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.statusLocked()
}

// RateFor returns the rate of the longest configured prefix of model.
func (t *Tracker) RateFor(model string) Rate {
	normalized := strings.ToLower(strings.TrimSpace(model))
	best := ""
	for prefix := range t.rates {
		if strings.HasPrefix(normalized, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return t.fallback
	}

	return t.rates[best]
}

func (t *Tracker) statusLocked() panthere.BudgetStatus {
	return panthere.BudgetStatus{Ledger: t.ledger, Limit: t.limit}
}

var _ panthere.BudgetTracker = (*Tracker)(nil)
