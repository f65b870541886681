package valuation

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/kineticrick/folio/internal/models"
	"github.com/kineticrick/folio/internal/timeseries"
)

// DimensionMapping resolves a symbol to its value for one dimension (its
// sector, asset type, account type or geography). A false return excludes the
// symbol from the aggregation.
type DimensionMapping func(symbol string) (string, bool)

// AggregateDimension reduces per-asset valued series to the per-dimension
// daily arithmetic mean of percent return across member assets held that day.
//
// A dimension value with no assets held on a date produces no row at all:
// absence is preserved, never synthesized as zero.
func AggregateDimension(valued []models.ValuedSnapshot, mapping DimensionMapping) []models.DimensionSummaryRow {
	type key struct {
		date  time.Time
		value string
	}
	groups := make(map[key][]float64)

	for _, snap := range valued {
		if snap.Quantity <= 0 || snap.CostBasis == 0 {
			continue
		}
		dim, ok := mapping(snap.Symbol)
		if !ok || dim == "" {
			continue
		}
		k := key{date: timeseries.Day(snap.Date), value: dim}
		groups[k] = append(groups[k], snap.PercentReturn)
	}

	rows := make([]models.DimensionSummaryRow, 0, len(groups))
	for k, returns := range groups {
		mean, err := stats.Mean(returns)
		if err != nil {
			continue
		}
		rows = append(rows, models.DimensionSummaryRow{
			Date:             k.date,
			DimensionValue:   k.value,
			AvgPercentReturn: round2(mean),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].DimensionValue < rows[j].DimensionValue
	})
	return rows
}

// SumPortfolioValue collapses all assets' valued rows into the portfolio's
// daily total market value.
func SumPortfolioValue(valued []models.ValuedSnapshot) []models.PortfolioValueRow {
	totals := make(map[time.Time]float64)
	for _, snap := range valued {
		totals[timeseries.Day(snap.Date)] += snap.Value
	}

	rows := make([]models.PortfolioValueRow, 0, len(totals))
	for date, total := range totals {
		rows = append(rows, models.PortfolioValueRow{Date: date, Value: round2(total)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows
}
