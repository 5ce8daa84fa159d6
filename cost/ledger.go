package cost

import (
	"sync"
	"time"
)

// Call is one recorded model invocation.
type Call struct {
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// Summary aggregates every call recorded since the last Reset.
type Summary struct {
	TotalCalls        int     `json:"total_calls"`
	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`
	TotalTokens       int     `json:"total_tokens"`
	TotalCostUSD      float64 `json:"total_cost_usd"`
}

// Ledger tracks usage across calls. It is safe for concurrent use.
type Ledger struct {
	mu     sync.RWMutex
	prices Prices
	calls  []Call
	totals Summary
}

// NewLedger creates a ledger priced with DefaultPrices.
func NewLedger() *Ledger {
	return NewLedgerWithPrices(DefaultPrices())
}

// NewLedgerWithPrices creates a ledger with a custom pricing table.
func NewLedgerWithPrices(prices Prices) *Ledger {
	return &Ledger{prices: prices}
}

// Record adds a call. A nil cost is estimated from the pricing table.
func (l *Ledger) Record(model string, inputTokens, outputTokens int, cost *float64) Call {
	c := Call{
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		RecordedAt:   time.Now(),
	}
	if cost != nil {
		c.CostUSD = *cost
	} else {
		c.CostUSD = l.prices.Estimate(model, inputTokens, outputTokens)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, c)
	l.totals.TotalCalls++
	l.totals.TotalInputTokens += inputTokens
	l.totals.TotalOutputTokens += outputTokens
	l.totals.TotalTokens += inputTokens + outputTokens
	l.totals.TotalCostUSD += c.CostUSD
	return c
}

// Estimate returns the cost of a call without recording it.
func (l *Ledger) Estimate(model string, inputTokens, outputTokens int) float64 {
	return l.prices.Estimate(model, inputTokens, outputTokens)
}

// Summary returns the running totals.
func (l *Ledger) Summary() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totals
}

// Calls returns a copy of the call history in record order.
func (l *Ledger) Calls() []Call {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Call, len(l.calls))
	copy(out, l.calls)
	return out
}

// Reset clears the history and totals.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = nil
	l.totals = Summary{}
}
