package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kineticrick/folio/internal/models"
)

// engineOver builds a replay engine whose event source serves the given raw
// records, counting lookups per symbol.
func engineOver(t *testing.T, raw RawRecords) (*Engine, map[string]int) {
	t.Helper()
	calls := make(map[string]int)
	source := func(ctx context.Context, symbol string) ([]models.Event, error) {
		calls[symbol]++
		return BuildEventLog(raw, []string{symbol})
	}
	return NewEngine(source, nil), calls
}

func TestReplayFIFOBasis(t *testing.T) {
	raw := RawRecords{
		Trades: []models.TradeRecord{
			{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 100, PricePerShare: 150},
			{Date: day(2024, 1, 9), Symbol: "MSFT", Action: "buy", NumShares: 50, PricePerShare: 155},
			{Date: day(2024, 1, 10), Symbol: "MSFT", Action: "sell", NumShares: 75, PricePerShare: 160},
		},
	}
	engine, _ := engineOver(t, raw)

	snaps, err := engine.Replay(context.Background(), "MSFT")
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	assert.Equal(t, 100.0, snaps[0].Quantity)
	assert.Equal(t, 15000.0, snaps[0].CostBasis)
	assert.Equal(t, 150.0, snaps[1].Quantity)
	assert.Equal(t, 22750.0, snaps[1].CostBasis)

	// The sell consumes the oldest lot first: 75 of the $150 shares leave,
	// so basis drops by 11250 not by 75 * average cost.
	last := snaps[2]
	assert.Equal(t, 75.0, last.Quantity)
	assert.Equal(t, 11500.0, last.CostBasis)
}

func TestReplaySameDayEventsCollapse(t *testing.T) {
	raw := RawRecords{
		Trades: []models.TradeRecord{
			{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 100, PricePerShare: 150},
			{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "sell", NumShares: 40, PricePerShare: 152},
		},
	}
	engine, _ := engineOver(t, raw)

	snaps, err := engine.Replay(context.Background(), "MSFT")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 60.0, snaps[0].Quantity)
	assert.Equal(t, 9000.0, snaps[0].CostBasis)
}

func TestReplayOversellFails(t *testing.T) {
	raw := RawRecords{
		Trades: []models.TradeRecord{
			{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 10, PricePerShare: 150},
			{Date: day(2024, 1, 9), Symbol: "MSFT", Action: "sell", NumShares: 15, PricePerShare: 160},
		},
	}
	engine, _ := engineOver(t, raw)

	_, err := engine.Replay(context.Background(), "MSFT")
	var negative *models.NegativeQuantityError
	require.True(t, errors.As(err, &negative))
	assert.Equal(t, 15.0, negative.Requested)
	assert.Equal(t, 10.0, negative.Held)
}

func TestReplaySplitPreservesCostBasis(t *testing.T) {
	raw := RawRecords{
		Trades: []models.TradeRecord{
			{Date: day(2024, 1, 8), Symbol: "NVDA", Action: "buy", NumShares: 10, PricePerShare: 100},
		},
		Splits: []models.SplitRecord{
			{DistributionDate: day(2024, 1, 10), Symbol: "NVDA", Multiplier: 4},
		},
	}
	engine, _ := engineOver(t, raw)

	snaps, err := engine.Replay(context.Background(), "NVDA")
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, 40.0, snaps[1].Quantity)
	assert.Equal(t, 1000.0, snaps[1].CostBasis)
}

func TestReplayAcquisitionTransfersBasis(t *testing.T) {
	raw := RawRecords{
		Trades: []models.TradeRecord{
			{Date: day(2024, 1, 8), Symbol: "ATVI", Action: "buy", NumShares: 10, PricePerShare: 100},
		},
		Acquisitions: []models.AcquisitionRecord{
			// Wednesday; the acquirer inherits state as of Tuesday's close.
			{Date: day(2024, 1, 10), Symbol: "ATVI", Acquirer: "MSFT", ConversionRatio: 1.5},
		},
	}
	engine, calls := engineOver(t, raw)
	ctx := context.Background()

	target, err := engine.Replay(ctx, "ATVI")
	require.NoError(t, err)
	last := target[len(target)-1]
	assert.Equal(t, 0.0, last.Quantity)
	assert.Equal(t, 0.0, last.CostBasis)

	acquirer, err := engine.Replay(ctx, "MSFT")
	require.NoError(t, err)
	require.Len(t, acquirer, 1)
	assert.Equal(t, 15.0, acquirer[0].Quantity, "floor(10 * 1.5) converted shares")
	assert.Equal(t, 1000.0, acquirer[0].CostBasis, "target basis carried verbatim")

	// Memoized: the acquirer's lookup of ATVI reused the earlier replay.
	assert.Equal(t, 1, calls["ATVI"])
}

func TestReplaySubShareConversionFloorsToNothing(t *testing.T) {
	raw := RawRecords{
		Trades: []models.TradeRecord{
			{Date: day(2024, 1, 8), Symbol: "TINY", Action: "buy", NumShares: 1, PricePerShare: 500},
		},
		Acquisitions: []models.AcquisitionRecord{
			{Date: day(2024, 1, 10), Symbol: "TINY", Acquirer: "BIG", ConversionRatio: 0.4},
		},
	}
	engine, _ := engineOver(t, raw)

	snaps, err := engine.Replay(context.Background(), "BIG")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 0.0, snaps[0].Quantity)
	assert.Equal(t, 0.0, snaps[0].CostBasis, "no shares means no basis to carry")
}

func TestReplayCyclicAcquisitionDetected(t *testing.T) {
	raw := RawRecords{
		Acquisitions: []models.AcquisitionRecord{
			{Date: day(2024, 1, 10), Symbol: "AAA", Acquirer: "BBB", ConversionRatio: 1},
			{Date: day(2024, 1, 12), Symbol: "BBB", Acquirer: "AAA", ConversionRatio: 1},
		},
	}
	engine, _ := engineOver(t, raw)

	_, err := engine.Replay(context.Background(), "AAA")
	var cyclic *models.CyclicAcquisitionError
	require.True(t, errors.As(err, &cyclic), "expected CyclicAcquisitionError, got %v", err)
	assert.Contains(t, cyclic.Chain, "AAA")
	assert.Contains(t, cyclic.Chain, "BBB")
}

func TestDividendsTalliedWithoutTouchingPosition(t *testing.T) {
	raw := RawRecords{
		Trades: []models.TradeRecord{
			{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 10, PricePerShare: 150},
		},
		Dividends: []models.DividendRecord{
			{Date: day(2024, 2, 1), Symbol: "MSFT", Amount: 7.5},
			{Date: day(2024, 5, 1), Symbol: "MSFT", Amount: 7.5},
		},
	}
	engine, _ := engineOver(t, raw)
	ctx := context.Background()

	total, err := engine.Dividends(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 15.0, total)

	// Dividend dates never open snapshots; only the buy emits one.
	snaps, err := engine.Replay(ctx, "MSFT")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, day(2024, 1, 8), snaps[0].Date)
	assert.Equal(t, 10.0, snaps[0].Quantity)
}

func TestSellFailureLeavesStateUnmodified(t *testing.T) {
	s := &State{Symbol: "MSFT"}
	s.buy(day(2024, 1, 8), 10, 150)

	err := s.sell(day(2024, 1, 9), 25)
	require.Error(t, err)
	assert.Equal(t, 10.0, s.Quantity)
	assert.Equal(t, 1500.0, s.CostBasis)
	require.Len(t, s.Lots, 1)
	assert.Equal(t, 10.0, s.Lots[0].RemainingQuantity)
}
