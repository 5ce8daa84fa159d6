package cost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateKnownModel(t *testing.T) {
	prices := DefaultPrices()

	assert.InDelta(t, 0.06, prices.Estimate("gpt-4", 1000, 500), 1e-9)
	assert.InDelta(t, 0.0015+0.00125, prices.Estimate("claude-3-haiku-20240307", 6000, 1000), 1e-9)
}

func TestEstimateUnknownModelIsZero(t *testing.T) {
	ledger := NewLedger()

	assert.Equal(t, 0.0, ledger.Estimate("mock-gpt-4", 10_000, 10_000))
	assert.Equal(t, 0.0, ledger.Estimate("", 0, 0))
}

func TestRecordEstimatesWhenCostMissing(t *testing.T) {
	ledger := NewLedger()

	call := ledger.Record("gpt-4o", 2000, 1000, nil)

	assert.InDelta(t, 0.025, call.CostUSD, 1e-9)
	assert.False(t, call.RecordedAt.IsZero())
}

func TestRecordUsesExplicitCost(t *testing.T) {
	ledger := NewLedger()
	explicit := 1.25

	call := ledger.Record("gpt-4", 1000, 1000, &explicit)

	assert.Equal(t, 1.25, call.CostUSD)
	assert.Equal(t, 1.25, ledger.Summary().TotalCostUSD)
}

func TestSummaryAndReset(t *testing.T) {
	ledger := NewLedger()
	ledger.Record("gpt-4", 1000, 0, nil)
	ledger.Record("unknown", 10, 20, nil)

	summary := ledger.Summary()
	assert.Equal(t, 2, summary.TotalCalls)
	assert.Equal(t, 1010, summary.TotalInputTokens)
	assert.Equal(t, 20, summary.TotalOutputTokens)
	assert.Equal(t, 1030, summary.TotalTokens)
	assert.InDelta(t, 0.03, summary.TotalCostUSD, 1e-9)

	calls := ledger.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "unknown", calls[1].Model)

	ledger.Reset()
	assert.Equal(t, Summary{}, ledger.Summary())
	assert.Empty(t, ledger.Calls())
}

func TestCallsReturnsCopy(t *testing.T) {
	ledger := NewLedger()
	ledger.Record("gpt-4", 1, 1, nil)

	calls := ledger.Calls()
	calls[0].Model = "tampered"

	assert.Equal(t, "gpt-4", ledger.Calls()[0].Model)
}

func TestConcurrentRecord(t *testing.T) {
	ledger := NewLedger()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.Record("gpt-3.5-turbo", 100, 100, nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, ledger.Summary().TotalCalls)
	assert.Equal(t, 10_000, ledger.Summary().TotalTokens)
}

func TestModelsSorted(t *testing.T) {
	models := DefaultPrices().Models()
	require.NotEmpty(t, models)
	assert.IsIncreasing(t, models)
}
