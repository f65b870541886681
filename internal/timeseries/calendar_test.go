package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDayNormalizesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+11", 11*3600)
	ts := time.Date(2024, 1, 8, 15, 30, 45, 123, loc)
	assert.Equal(t, date(2024, 1, 8), Day(ts))
}

func TestBusinessDayNavigation(t *testing.T) {
	monday := date(2024, 1, 8)
	saturday := date(2024, 1, 13)
	sunday := date(2024, 1, 14)

	assert.True(t, IsBusinessDay(monday))
	assert.False(t, IsBusinessDay(saturday))
	assert.False(t, IsBusinessDay(sunday))

	// Monday looks back across the weekend to Friday.
	assert.Equal(t, date(2024, 1, 5), PrevBusinessDay(monday))
	assert.Equal(t, date(2024, 1, 9), PrevBusinessDay(date(2024, 1, 10)))

	// Friday looks ahead across the weekend to Monday.
	assert.Equal(t, monday, NextBusinessDay(date(2024, 1, 5)))
	assert.Equal(t, date(2024, 1, 15), NextBusinessDay(saturday))
}

func TestLastCompletedTradingDay(t *testing.T) {
	// Mid-week: yesterday.
	assert.Equal(t, date(2024, 1, 9), LastCompletedTradingDay(date(2024, 1, 10)))
	// Monday and the weekend all resolve to the prior Friday.
	assert.Equal(t, date(2024, 1, 12), LastCompletedTradingDay(date(2024, 1, 13)))
	assert.Equal(t, date(2024, 1, 12), LastCompletedTradingDay(date(2024, 1, 14)))
	assert.Equal(t, date(2024, 1, 12), LastCompletedTradingDay(date(2024, 1, 15)))
}

func TestParseCadence(t *testing.T) {
	for name, want := range map[string]Cadence{
		"daily": Daily, "Week": Weekly, "MONTHLY": Monthly, "quarter": Quarterly, "year": Yearly,
	} {
		got, err := ParseCadence(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseCadence("fortnightly")
	assert.Error(t, err)
}

func TestPeriodEnd(t *testing.T) {
	wednesday := date(2024, 2, 14)

	assert.Equal(t, wednesday, Daily.PeriodEnd(wednesday))
	assert.Equal(t, date(2024, 2, 18), Weekly.PeriodEnd(wednesday), "weeks close on Sunday")
	assert.Equal(t, date(2024, 2, 29), Monthly.PeriodEnd(wednesday), "leap February")
	assert.Equal(t, date(2024, 3, 31), Quarterly.PeriodEnd(wednesday))
	assert.Equal(t, date(2024, 12, 31), Yearly.PeriodEnd(wednesday))

	// A Sunday is already its own week end.
	assert.Equal(t, date(2024, 2, 18), Weekly.PeriodEnd(date(2024, 2, 18)))
}

func TestSamplesOn(t *testing.T) {
	assert.True(t, Daily.SamplesOn(date(2024, 1, 10)))
	assert.False(t, Daily.SamplesOn(date(2024, 1, 13)), "Saturday never samples")

	assert.True(t, Weekly.SamplesOn(date(2024, 1, 12)), "Friday")
	assert.False(t, Weekly.SamplesOn(date(2024, 1, 11)))

	// March 2024 ends on a Sunday; the last business day is Friday the 29th,
	// which is simultaneously the monthly, quarterly and yearly-ineligible
	// sampling point.
	assert.True(t, Monthly.SamplesOn(date(2024, 3, 29)))
	assert.False(t, Monthly.SamplesOn(date(2024, 3, 31)))
	assert.True(t, Quarterly.SamplesOn(date(2024, 3, 29)))
	assert.False(t, Quarterly.SamplesOn(date(2024, 2, 29)), "February is not a quarter end")
	assert.True(t, Yearly.SamplesOn(date(2024, 12, 31)))
	assert.False(t, Yearly.SamplesOn(date(2024, 3, 29)))
}
