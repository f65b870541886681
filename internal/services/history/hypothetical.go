package history

import (
	"context"
	"math"
	"time"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/models"
	"github.com/kineticrick/folio/internal/timeseries"
)

// exit captures a fully closed position: the date it went to zero and the
// share count held just before.
type exit struct {
	symbol   string
	date     time.Time
	quantity float64
}

// SyncHypothetical projects fully exited positions forward: for each symbol
// whose ledger ended at zero quantity, the pre-exit share count is valued
// against every settled close after the exit, answering "what would it be
// worth had it been kept". Each symbol resumes from its own persisted
// high-water mark.
func (s *Service) SyncHypothetical(ctx context.Context, overwrite bool) (*models.SyncReport, error) {
	report := s.newReport("hypothetical")
	today := timeseries.Day(s.now())
	lastTrading := timeseries.LastCompletedTradingDay(today)

	engine, symbols, err := s.replayEngine(ctx)
	if err != nil {
		return nil, err
	}

	var exits []exit
	for _, symbol := range symbols {
		snaps, err := engine.Replay(ctx, symbol)
		if err != nil {
			report.Failures = append(report.Failures, models.SymbolFailure{
				Symbol: symbol, Err: err, Reason: err.Error(),
			})
			continue
		}
		if len(snaps) == 0 || snaps[len(snaps)-1].Quantity != 0 {
			continue
		}
		var held float64
		for _, snap := range snaps {
			if snap.Quantity > 0 {
				held = snap.Quantity
			}
		}
		if held == 0 {
			continue
		}
		exits = append(exits, exit{
			symbol:   symbol,
			date:     timeseries.Day(snaps[len(snaps)-1].Date),
			quantity: held,
		})
	}
	if len(exits) == 0 {
		report.UpToDate = true
		report.FinishedAt = s.now()
		return report, nil
	}

	persisted, err := s.storage.History().LatestHypotheticalDates(ctx)
	if err != nil {
		return nil, err
	}

	var rows []models.HypotheticalRow
	upToDate := true
	for _, ex := range exits {
		start := timeseries.NextBusinessDay(ex.date)
		if !overwrite {
			if latest, ok := persisted[ex.symbol]; ok {
				if !latest.Before(lastTrading) {
					continue
				}
				start = timeseries.NextBusinessDay(latest)
			}
		}
		if start.After(lastTrading) {
			continue
		}
		upToDate = false

		bars, gaps, err := s.prices.GetHistoricalPrices(ctx, []string{ex.symbol}, start, lastTrading, false)
		if err != nil {
			return nil, err
		}
		report.PriceGaps = append(report.PriceGaps, gaps...)

		for _, bar := range bars {
			day := timeseries.Day(bar.Date)
			if day.Before(start) || day.After(lastTrading) {
				continue
			}
			rows = append(rows, models.HypotheticalRow{
				Date:         day,
				Symbol:       ex.symbol,
				Quantity:     ex.quantity,
				ClosingPrice: bar.Close,
				Value:        math.Round(ex.quantity*bar.Close*100) / 100,
			})
		}
	}

	written, err := s.storage.History().AppendHypotheticalRows(ctx, rows, overwrite)
	if err != nil {
		return nil, err
	}
	report.RowsWritten = written
	report.UpToDate = upToDate && written == 0
	report.FinishedAt = s.now()
	s.cache.EvictTag(common.CacheTagHistory)

	s.logger.Info().
		Str("run_id", report.RunID).
		Int("rows", written).
		Int("exited_symbols", len(exits)).
		Msg("Hypothetical history synced")
	return report, nil
}
