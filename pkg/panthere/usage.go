package panthere

import "github.com/shopspring/decimal"

// UsageCharge is the token usage and derived cost of one model call.
type UsageCharge struct {
	InputTokens  int64
	OutputTokens int64
	Cost         decimal.Decimal
}

// UsageLedger is the process-wide running total of model usage.
type UsageLedger struct {
	InputTokens  int64
	OutputTokens int64
	TotalCost    decimal.Decimal
}

// BudgetStatus is a point-in-time view of the ledger against its ceiling.
type BudgetStatus struct {
	Ledger UsageLedger
	Limit  decimal.Decimal
}

// Remaining returns the budget left before the ceiling. It can be negative
// when in-flight calls overshot the limit.
func (s BudgetStatus) Remaining() decimal.Decimal {
	return s.Limit.Sub(s.Ledger.TotalCost)
}

// Exhausted reports whether further model calls must be rejected.
func (s BudgetStatus) Exhausted() bool {
	return s.Ledger.TotalCost.GreaterThanOrEqual(s.Limit)
}

// BudgetTracker gates model calls on a monetary ceiling and records usage.
type BudgetTracker interface {
	// Allow returns an error wrapping ErrBudgetExceeded once the ceiling is reached.
	Allow() error
	// Charge records one successful call and returns its cost plus the new status.
	Charge(model string, usage LLMUsage) (UsageCharge, BudgetStatus)
	// Status returns the current ledger and ceiling.
	Status() BudgetStatus
}
