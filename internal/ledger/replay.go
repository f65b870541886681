package ledger

import (
	"context"
	"math"
	"time"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/models"
	"github.com/kineticrick/folio/internal/timeseries"
)

// EventSource supplies one symbol's ordered event stream. The engine uses it
// both for the symbol under replay and to lazily resolve acquisition targets.
type EventSource func(ctx context.Context, symbol string) ([]models.Event, error)

// Engine folds per-symbol event streams into snapshot series.
//
// Replays are memoized per symbol, so an acquirer's lookup of its target's
// historical state never re-replays the target. An active-replay set guards
// the recursion: a chain that loops back onto a symbol already in flight is
// rejected as a CyclicAcquisitionError instead of recursing forever.
//
// The engine is not safe for concurrent use; the batch pipeline drives it
// from a single goroutine.
type Engine struct {
	source EventSource
	logger *common.Logger
	memo   map[string]*replayResult
	active map[string]bool
	chain  []string
}

type replayResult struct {
	snapshots []models.DailySnapshot
	dividends float64
	err       error
}

// NewEngine creates a replay engine over the given event source.
func NewEngine(source EventSource, logger *common.Logger) *Engine {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Engine{
		source: source,
		logger: logger,
		memo:   make(map[string]*replayResult),
		active: make(map[string]bool),
	}
}

// Replay produces the symbol's sparse snapshot series: one entry per
// event-affecting date, carrying the date's final quantity and cost basis.
// Multiple same-day events collapse into a single snapshot.
//
// The returned slice is shared with the engine's memo; callers must not
// mutate it. A replay error is fatal for this symbol only.
func (e *Engine) Replay(ctx context.Context, symbol string) ([]models.DailySnapshot, error) {
	res := e.replay(ctx, symbol)
	return res.snapshots, res.err
}

// Dividends returns the symbol's cumulative cash dividend total across the
// full log. Dividends never touch ledger state; they are tallied separately.
func (e *Engine) Dividends(ctx context.Context, symbol string) (float64, error) {
	res := e.replay(ctx, symbol)
	return res.dividends, res.err
}

func (e *Engine) replay(ctx context.Context, symbol string) *replayResult {
	if res, ok := e.memo[symbol]; ok {
		return res
	}
	if e.active[symbol] {
		return &replayResult{err: &models.CyclicAcquisitionError{
			Chain: append(append([]string{}, e.chain...), symbol),
		}}
	}

	e.active[symbol] = true
	e.chain = append(e.chain, symbol)
	defer func() {
		delete(e.active, symbol)
		e.chain = e.chain[:len(e.chain)-1]
	}()

	res := e.run(ctx, symbol)
	e.memo[symbol] = res
	if res.err != nil {
		e.logger.Warn().Err(res.err).Str("symbol", symbol).Msg("Replay failed")
	}
	return res
}

func (e *Engine) run(ctx context.Context, symbol string) *replayResult {
	events, err := e.source(ctx, symbol)
	if err != nil {
		return &replayResult{err: err}
	}

	res := &replayResult{}
	state := &State{Symbol: symbol}
	var lastDate time.Time

	emit := func() {
		if lastDate.IsZero() {
			return
		}
		res.snapshots = append(res.snapshots, models.DailySnapshot{
			Date:      lastDate,
			Symbol:    symbol,
			Quantity:  state.Quantity,
			CostBasis: state.CostBasis,
		})
	}

	for _, ev := range events {
		if !ev.Kind.AffectsQuantity() {
			// Dividends are tallied but never open a snapshot date.
			res.dividends += ev.Dividend
			continue
		}

		day := timeseries.Day(ev.Date)
		if !day.Equal(lastDate) {
			emit()
			lastDate = day
		}

		switch ev.Kind {
		case models.KindBuy:
			state.buy(day, ev.Quantity, ev.UnitPrice)

		case models.KindSell:
			if err := state.sell(day, ev.Quantity); err != nil {
				res.err = err
				return res
			}

		case models.KindSplit:
			state.split(ev.Multiplier)

		case models.KindAcquisitionTarget:
			state.clear()

		case models.KindAcquisitionAcquirer:
			// The acquirer inherits floor(target quantity * ratio) shares and
			// the target's cost basis as of the business day before the deal.
			asOf := timeseries.PrevBusinessDay(day)
			qty, basis, err := e.stateOn(ctx, ev.Counterparty, asOf)
			if err != nil {
				res.err = err
				return res
			}
			state.absorb(day, math.Floor(qty*ev.Multiplier), basis)

		default:
			res.err = &models.MalformedEventError{
				Source: "event", Field: "kind", Reason: "unrecognized event kind",
			}
			return res
		}
	}
	emit()

	return res
}

// stateOn resolves another symbol's (quantity, cost basis) as of a date by
// replaying that symbol and reading its last snapshot at or before the date.
func (e *Engine) stateOn(ctx context.Context, symbol string, asOf time.Time) (float64, float64, error) {
	res := e.replay(ctx, symbol)
	if res.err != nil {
		return 0, 0, res.err
	}
	var qty, basis float64
	for _, snap := range res.snapshots {
		if snap.Date.After(asOf) {
			break
		}
		qty, basis = snap.Quantity, snap.CostBasis
	}
	return qty, basis, nil
}
