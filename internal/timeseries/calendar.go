// Package timeseries turns sparse ledger snapshots into dense, cadence-aligned
// daily series. The calendar treats weekends as the only non-trading days;
// exchange holidays surface downstream as missing price rows, which the
// valuation join drops with a warning.
package timeseries

import "time"

// Day normalizes a timestamp to UTC midnight. All series dates pass through
// this so map keys and comparisons line up.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether d falls on a weekday.
func IsBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// PrevBusinessDay returns the closest business day strictly before d.
func PrevBusinessDay(d time.Time) time.Time {
	d = Day(d).AddDate(0, 0, -1)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// NextBusinessDay returns the closest business day strictly after d.
func NextBusinessDay(d time.Time) time.Time {
	d = Day(d).AddDate(0, 0, 1)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// LastCompletedTradingDay returns the most recent day with a settled close as
// of "today": yesterday, or the prior Friday when yesterday fell on a weekend.
func LastCompletedTradingDay(today time.Time) time.Time {
	return PrevBusinessDay(today)
}

// lastBusinessDayOfMonth returns the last weekday of d's month.
func lastBusinessDayOfMonth(d time.Time) time.Time {
	eom := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	for !IsBusinessDay(eom) {
		eom = eom.AddDate(0, 0, -1)
	}
	return eom
}

// quarterEndMonth maps a month to the closing month of its calendar quarter.
func quarterEndMonth(m time.Month) time.Month {
	switch {
	case m <= time.March:
		return time.March
	case m <= time.June:
		return time.June
	case m <= time.September:
		return time.September
	default:
		return time.December
	}
}
