package budget

import (
	"errors"
	"sync"
	"testing"

	"petit-panthere/pkg/panthere"

	"github.com/shopspring/decimal"
)

func TestRateFor(t *testing.T) {
	t.Parallel()

	tracker := New(WithRate("gpt-5", Rate{Input: decimal.RequireFromString("1.25"), Output: decimal.NewFromInt(10)}))

	tests := []struct {
		model      string
		wantInput  string
		wantOutput string
	}{
		{model: "claude-sonnet-4-5-20250929", wantInput: "3", wantOutput: "15"},
		{model: "claude-opus-4-6", wantInput: "5", wantOutput: "25"},
		{model: "claude-opus-4-1-20250805", wantInput: "15", wantOutput: "75"},
		{model: "Claude-Haiku-4-5", wantInput: "1", wantOutput: "5"},
		{model: "gpt-5-mini", wantInput: "1.25", wantOutput: "10"},
		{model: "unknown-model", wantInput: "3", wantOutput: "15"},
	}

	for _, testCase := range tests {
		t.Run(testCase.model, func(t *testing.T) {
			t.Parallel()

			rate := tracker.RateFor(testCase.model)
			if !rate.Input.Equal(decimal.RequireFromString(testCase.wantInput)) {
				t.Fatalf("input rate = %s, want %s", rate.Input, testCase.wantInput)
			}
			if !rate.Output.Equal(decimal.RequireFromString(testCase.wantOutput)) {
				t.Fatalf("output rate = %s, want %s", rate.Output, testCase.wantOutput)
			}
		})
	}
}

func TestTrackerCharge(t *testing.T) {
	t.Parallel()

	tracker := New()
	charge, status := tracker.Charge("claude-sonnet-4-5-20250929", panthere.LLMUsage{InputTokens: 1234, OutputTokens: 567})

	wantCost := decimal.RequireFromString("0.012207")
	if !charge.Cost.Equal(wantCost) {
		t.Fatalf("charge cost = %s, want %s", charge.Cost, wantCost)
	}
	if charge.InputTokens != 1234 || charge.OutputTokens != 567 {
		t.Fatalf("charge tokens = %d/%d, want 1234/567", charge.InputTokens, charge.OutputTokens)
	}
	if !status.Ledger.TotalCost.Equal(wantCost) {
		t.Fatalf("total cost = %s, want %s", status.Ledger.TotalCost, wantCost)
	}
	if !status.Limit.Equal(DefaultLimit) {
		t.Fatalf("limit = %s, want %s", status.Limit, DefaultLimit)
	}

	_, status = tracker.Charge("claude-sonnet-4-5-20250929", panthere.LLMUsage{InputTokens: 1000, OutputTokens: -5})
	if status.Ledger.InputTokens != 2234 || status.Ledger.OutputTokens != 567 {
		t.Fatalf("ledger tokens = %d/%d, want 2234/567", status.Ledger.InputTokens, status.Ledger.OutputTokens)
	}
	if !status.Ledger.TotalCost.Equal(decimal.RequireFromString("0.015207")) {
		t.Fatalf("total cost = %s, want 0.015207", status.Ledger.TotalCost)
	}
}

func TestTrackerAllow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		limit   string
		usage   []panthere.LLMUsage
		wantErr bool
	}{
		{name: "fresh ledger", limit: "5.00"},
		{name: "below limit", limit: "5.00", usage: []panthere.LLMUsage{{InputTokens: 1_000_000}}},
		{
			name:    "exactly at limit",
			limit:   "18",
			usage:   []panthere.LLMUsage{{InputTokens: 1_000_000, OutputTokens: 1_000_000}},
			wantErr: true,
		},
		{
			name:    "overshoot",
			limit:   "5.00",
			usage:   []panthere.LLMUsage{{OutputTokens: 1_000_000}},
			wantErr: true,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			tracker := New(WithLimit(decimal.RequireFromString(testCase.limit)))
			for _, usage := range testCase.usage {
				tracker.Charge("claude-sonnet-4-5", usage)
			}

			err := tracker.Allow()
			if testCase.wantErr {
				if !errors.Is(err, panthere.ErrBudgetExceeded) {
					t.Fatalf("error = %v, want ErrBudgetExceeded", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Allow failed: %v", err)
			}
		})
	}
}

func TestTrackerIgnoresNonPositiveLimit(t *testing.T) {
	t.Parallel()

	tracker := New(WithLimit(decimal.Zero))
	if !tracker.Status().Limit.Equal(DefaultLimit) {
		t.Fatalf("limit = %s, want default", tracker.Status().Limit)
	}
}

func TestTrackerConcurrentCharges(t *testing.T) {
	t.Parallel()

	const workers = 50
	tracker := New()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Charge("claude-sonnet-4-5", panthere.LLMUsage{InputTokens: 100, OutputTokens: 10})
		}()
	}
	wg.Wait()

	status := tracker.Status()
	if status.Ledger.InputTokens != 100*workers || status.Ledger.OutputTokens != 10*workers {
		t.Fatalf("ledger tokens = %d/%d", status.Ledger.InputTokens, status.Ledger.OutputTokens)
	}
	want := decimal.RequireFromString("0.0225")
	if !status.Ledger.TotalCost.Equal(want) {
		t.Fatalf("total cost = %s, want %s", status.Ledger.TotalCost, want)
	}
}
