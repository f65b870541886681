package timeseries

import (
	"time"

	"github.com/kineticrick/folio/internal/models"
)

// Expand turns one symbol's sparse snapshot sequence (only dates where state
// changed) into a dense daily series via forward-fill.
//
// The series covers every calendar day from the first snapshot to the end of
// the cadence period containing the last relevant date: the final snapshot
// date when the position was fully exited, otherwise "today". Forward-fill
// never looks ahead; each row carries the most recent state at or before its
// date.
func Expand(snaps []models.DailySnapshot, cadence Cadence, today time.Time) []models.DailySnapshot {
	if len(snaps) == 0 {
		return nil
	}

	first := Day(snaps[0].Date)
	last := Day(snaps[len(snaps)-1].Date)

	end := Day(today)
	if snaps[len(snaps)-1].Quantity == 0 {
		// Fully exited: the series stops at the exit.
		end = last
	}
	end = cadence.PeriodEnd(end)

	dense := make([]models.DailySnapshot, 0, int(end.Sub(first).Hours()/24)+1)
	idx := 0
	current := snaps[0]
	for d := first; !d.After(end); d = d.AddDate(0, 0, 1) {
		for idx < len(snaps) && !Day(snaps[idx].Date).After(d) {
			current = snaps[idx]
			idx++
		}
		dense = append(dense, models.DailySnapshot{
			Date:      d,
			Symbol:    current.Symbol,
			Quantity:  current.Quantity,
			CostBasis: current.CostBasis,
		})
	}
	return dense
}

// Resample reduces a dense daily series to one row per cadence period,
// selected on the cadence's business-day convention.
func Resample(dense []models.DailySnapshot, cadence Cadence) []models.DailySnapshot {
	out := make([]models.DailySnapshot, 0, len(dense))
	for _, row := range dense {
		if cadence.SamplesOn(row.Date) {
			out = append(out, row)
		}
	}
	return out
}

// ExpandResample is the full chronology expansion: forward-fill to a dense
// calendar, then align to the requested cadence.
func ExpandResample(snaps []models.DailySnapshot, cadence Cadence, today time.Time) []models.DailySnapshot {
	return Resample(Expand(snaps, cadence, today), cadence)
}
