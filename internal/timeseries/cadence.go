package timeseries

import (
	"fmt"
	"strings"
	"time"
)

// Cadence is the sampling frequency a series is resampled to.
type Cadence int

const (
	Daily Cadence = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

func (c Cadence) String() string {
	switch c {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	default:
		panic(fmt.Sprintf("unknown cadence %d", c))
	}
}

// ParseCadence converts a user-supplied cadence name.
func ParseCadence(s string) (Cadence, error) {
	switch strings.ToLower(s) {
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "yearly", "year":
		return Yearly, nil
	default:
		return Daily, fmt.Errorf("unknown cadence %q", s)
	}
}

// PeriodEnd returns the last calendar day of the cadence period containing d.
// Weeks close on Sunday, quarters on the calendar quarter boundary. The
// expander advances a series' end boundary here so trailing same-period
// actions are not truncated.
func (c Cadence) PeriodEnd(d time.Time) time.Time {
	d = Day(d)
	switch c {
	case Daily:
		return d
	case Weekly:
		// Forward to Sunday.
		offset := (7 - int(d.Weekday())) % 7
		return d.AddDate(0, 0, offset)
	case Monthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	case Quarterly:
		qm := quarterEndMonth(d.Month())
		return time.Date(d.Year(), qm, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	case Yearly:
		return time.Date(d.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
	default:
		panic(fmt.Sprintf("unknown cadence %d", c))
	}
}

// SamplesOn reports whether d is the cadence's business-day sampling point:
// every business day for daily, Fridays for weekly, and the last business day
// of the period for monthly, quarterly and yearly.
func (c Cadence) SamplesOn(d time.Time) bool {
	d = Day(d)
	switch c {
	case Daily:
		return IsBusinessDay(d)
	case Weekly:
		return d.Weekday() == time.Friday
	case Monthly:
		return d.Equal(lastBusinessDayOfMonth(d))
	case Quarterly:
		return d.Month() == quarterEndMonth(d.Month()) && d.Equal(lastBusinessDayOfMonth(d))
	case Yearly:
		return d.Month() == time.December && d.Equal(lastBusinessDayOfMonth(d))
	default:
		panic(fmt.Sprintf("unknown cadence %d", c))
	}
}
