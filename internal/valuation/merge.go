// Package valuation joins expanded holding series against settled close
// prices and aggregates the result across portfolio dimensions.
package valuation

import (
	"math"
	"time"

	"github.com/kineticrick/folio/internal/models"
	"github.com/kineticrick/folio/internal/timeseries"
)

// MergeOptions tunes the valuation join.
type MergeOptions struct {
	// Today is the still-open trading day. Rows on or after it are excluded:
	// historical value requires a settled close.
	Today time.Time

	// IncludeExitDate keeps the first quantity-zero row of a fully exited
	// position as an exit marker. Off, zero-quantity rows are dropped.
	IncludeExitDate bool
}

// Merge inner-joins one symbol's expanded quantity/cost-basis series against
// its close-price series on date. Dates with no matching price are dropped
// and reported as gaps rather than defaulting to zero, which would understate
// value. A zero cost basis makes percent return undefined; the row is kept
// with its value but reported as a gap.
func Merge(series []models.DailySnapshot, prices []models.PriceBar, opts MergeOptions) ([]models.ValuedSnapshot, []models.PriceGap) {
	closes := make(map[time.Time]float64, len(prices))
	for _, p := range prices {
		closes[timeseries.Day(p.Date)] = p.Close
	}

	var (
		valued     []models.ValuedSnapshot
		gaps       []models.PriceGap
		exitMarked bool
	)
	today := timeseries.Day(opts.Today)

	for _, row := range series {
		day := timeseries.Day(row.Date)
		if !day.Before(today) {
			continue
		}

		if row.Quantity == 0 {
			if !opts.IncludeExitDate || exitMarked {
				continue
			}
			exitMarked = true
		}

		closing, ok := closes[day]
		if !ok {
			missing := &models.MissingPriceDataError{Symbol: row.Symbol, Date: day}
			gaps = append(gaps, models.PriceGap{
				Date: day, Symbol: row.Symbol, Reason: missing.Error(), Err: missing,
			})
			continue
		}

		snap := models.ValuedSnapshot{
			DailySnapshot: row,
			ClosingPrice:  closing,
			Value:         round2(row.Quantity * closing),
		}
		if row.CostBasis == 0 {
			gaps = append(gaps, models.PriceGap{
				Date: day, Symbol: row.Symbol, Reason: "zero cost basis, percent return undefined",
			})
		} else {
			snap.PercentReturn = round2((snap.Value - row.CostBasis) / row.CostBasis * 100)
		}
		valued = append(valued, snap)
	}

	return valued, gaps
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
