// Package history orchestrates incremental recomputation of every persisted
// derived series: per-asset valuation history, portfolio totals, dimension
// summaries, hypothetical post-exit projections, and the current-position
// summary table. It is the only writer of the history store.
package history

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/interfaces"
	"github.com/kineticrick/folio/internal/ledger"
	"github.com/kineticrick/folio/internal/models"
	"github.com/kineticrick/folio/internal/timeseries"
	"github.com/kineticrick/folio/internal/valuation"
)

// Service implements HistoryService
type Service struct {
	storage interfaces.StorageManager
	prices  interfaces.PriceFeed
	cache   interfaces.Cache
	config  *common.Config
	logger  *common.Logger

	// now is replaceable so tests can pin the trading calendar.
	now func() time.Time
}

// NewService creates a new history service
func NewService(storage interfaces.StorageManager, prices interfaces.PriceFeed, cache interfaces.Cache, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		prices:  prices,
		cache:   cache,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// SetNow overrides the service clock.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}

func (s *Service) newReport(series string) *models.SyncReport {
	return &models.SyncReport{
		RunID:     uuid.NewString(),
		Series:    series,
		StartedAt: s.now(),
	}
}

// SyncAll refreshes every derived series that is stale relative to the last
// completed trading day. Order matters: portfolio and dimension series read
// the asset rows the first step writes.
func (s *Service) SyncAll(ctx context.Context, overwrite bool) ([]models.SyncReport, error) {
	var reports []models.SyncReport

	assetReport, err := s.SyncAssets(ctx, overwrite)
	if err != nil {
		return nil, err
	}
	reports = append(reports, *assetReport)

	portfolioReport, err := s.SyncPortfolio(ctx, overwrite)
	if err != nil {
		return reports, err
	}
	reports = append(reports, *portfolioReport)

	for _, dim := range models.Dimensions() {
		dimReport, err := s.SyncDimension(ctx, dim, overwrite)
		if err != nil {
			return reports, err
		}
		reports = append(reports, *dimReport)
	}

	hypoReport, err := s.SyncHypothetical(ctx, overwrite)
	if err != nil {
		return reports, err
	}
	reports = append(reports, *hypoReport)

	if _, err := s.RebuildSummary(ctx); err != nil {
		return reports, err
	}

	return reports, nil
}

// SyncAssets recomputes the per-asset valuation history and appends what the
// store is missing. With overwrite, recomputed rows replace persisted ones.
func (s *Service) SyncAssets(ctx context.Context, overwrite bool) (*models.SyncReport, error) {
	report := s.newReport("assets")
	today := timeseries.Day(s.now())
	lastTrading := timeseries.LastCompletedTradingDay(today)

	latest, err := s.storage.History().LatestAssetDate(ctx)
	if err != nil {
		return nil, err
	}
	if !overwrite && !latest.IsZero() && !latest.Before(lastTrading) {
		report.UpToDate = true
		report.FinishedAt = s.now()
		s.logger.Debug().Str("series", "assets").Time("latest", latest).Msg("Series up to date")
		return report, nil
	}

	engine, symbols, err := s.replayEngine(ctx)
	if err != nil {
		return nil, err
	}

	series := make(map[string][]models.DailySnapshot, len(symbols))
	var priceStart time.Time
	for _, symbol := range symbols {
		snaps, err := engine.Replay(ctx, symbol)
		if err != nil {
			report.Failures = append(report.Failures, models.SymbolFailure{
				Symbol: symbol, Err: err, Reason: err.Error(),
			})
			continue
		}
		expanded := timeseries.ExpandResample(snaps, timeseries.Daily, today)
		if len(expanded) == 0 {
			continue
		}
		series[symbol] = expanded
		if priceStart.IsZero() || expanded[0].Date.Before(priceStart) {
			priceStart = expanded[0].Date
		}
	}
	if len(series) == 0 {
		report.FinishedAt = s.now()
		return report, nil
	}

	held := make([]string, 0, len(series))
	for symbol := range series {
		held = append(held, symbol)
	}
	sort.Strings(held)

	bars, gaps, err := s.prices.GetHistoricalPrices(ctx, held, priceStart, lastTrading, true)
	if err != nil {
		return nil, err
	}
	report.PriceGaps = append(report.PriceGaps, gaps...)
	barsBySymbol := groupBars(bars)

	var rows []models.ValuedSnapshot
	for _, symbol := range held {
		valued, mergeGaps := valuation.Merge(series[symbol], barsBySymbol[symbol], valuation.MergeOptions{
			Today:           today,
			IncludeExitDate: true,
		})
		report.PriceGaps = append(report.PriceGaps, mergeGaps...)
		for _, row := range valued {
			if !overwrite && !latest.IsZero() && !row.Date.After(latest) {
				continue
			}
			rows = append(rows, row)
		}
	}

	written, err := s.storage.History().AppendAssetRows(ctx, rows, overwrite)
	if err != nil {
		return nil, err
	}
	report.RowsWritten = written
	report.FinishedAt = s.now()
	s.cache.EvictTag(common.CacheTagHistory)

	s.logger.Info().
		Str("run_id", report.RunID).
		Int("rows", written).
		Int("symbols", len(held)).
		Int("gaps", len(report.PriceGaps)).
		Msg("Asset history synced")
	return report, nil
}

// SyncPortfolio recomputes the daily portfolio total from the persisted asset
// rows.
func (s *Service) SyncPortfolio(ctx context.Context, overwrite bool) (*models.SyncReport, error) {
	report := s.newReport("portfolio")
	today := timeseries.Day(s.now())
	lastTrading := timeseries.LastCompletedTradingDay(today)

	latest, err := s.storage.History().LatestPortfolioDate(ctx)
	if err != nil {
		return nil, err
	}
	if !overwrite && !latest.IsZero() && !latest.Before(lastTrading) {
		report.UpToDate = true
		report.FinishedAt = s.now()
		return report, nil
	}

	assetRows, err := s.storage.History().ListAssetRows(ctx, nil)
	if err != nil {
		return nil, err
	}

	var rows []models.PortfolioValueRow
	for _, row := range valuation.SumPortfolioValue(assetRows) {
		if !overwrite && !latest.IsZero() && !row.Date.After(latest) {
			continue
		}
		rows = append(rows, row)
	}

	written, err := s.storage.History().AppendPortfolioRows(ctx, rows, overwrite)
	if err != nil {
		return nil, err
	}
	report.RowsWritten = written
	report.FinishedAt = s.now()
	s.cache.EvictTag(common.CacheTagHistory)
	return report, nil
}

// SyncDimension recomputes one dimension's daily average percent return from
// the persisted asset rows and the entity registry.
func (s *Service) SyncDimension(ctx context.Context, dim models.Dimension, overwrite bool) (*models.SyncReport, error) {
	report := s.newReport("dimension:" + string(dim))
	today := timeseries.Day(s.now())
	lastTrading := timeseries.LastCompletedTradingDay(today)

	latest, err := s.storage.History().LatestDimensionDate(ctx, dim)
	if err != nil {
		return nil, err
	}
	if !overwrite && !latest.IsZero() && !latest.Before(lastTrading) {
		report.UpToDate = true
		report.FinishedAt = s.now()
		return report, nil
	}

	entities, err := s.storage.Events().ListEntities(ctx)
	if err != nil {
		return nil, err
	}
	bySymbol := make(map[string]models.Entity, len(entities))
	for _, e := range entities {
		bySymbol[strings.ToUpper(e.Symbol)] = e
	}
	mapping := func(symbol string) (string, bool) {
		e, ok := bySymbol[strings.ToUpper(symbol)]
		if !ok {
			return "", false
		}
		return dim.Value(&e), true
	}

	assetRows, err := s.storage.History().ListAssetRows(ctx, nil)
	if err != nil {
		return nil, err
	}

	var rows []models.DimensionSummaryRow
	for _, row := range valuation.AggregateDimension(assetRows, mapping) {
		if !overwrite && !latest.IsZero() && !row.Date.After(latest) {
			continue
		}
		rows = append(rows, row)
	}

	written, err := s.storage.History().AppendDimensionRows(ctx, dim, rows, overwrite)
	if err != nil {
		return nil, err
	}
	report.RowsWritten = written
	report.FinishedAt = s.now()
	s.cache.EvictTag(common.CacheTagHistory)
	return report, nil
}

// replayEngine loads the full raw record set, builds the unfiltered event
// log, and returns a replay engine over it plus the sorted symbol universe.
func (s *Service) replayEngine(ctx context.Context) (*ledger.Engine, []string, error) {
	raw, err := s.loadRawRecords(ctx)
	if err != nil {
		return nil, nil, err
	}

	events, err := ledger.BuildEventLog(raw, nil)
	if err != nil {
		return nil, nil, err
	}
	bySymbol := ledger.BySymbol(events)

	source := func(_ context.Context, symbol string) ([]models.Event, error) {
		return bySymbol[strings.ToUpper(symbol)], nil
	}
	engine := ledger.NewEngine(source, s.logger)

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return engine, symbols, nil
}

func (s *Service) loadRawRecords(ctx context.Context) (ledger.RawRecords, error) {
	var raw ledger.RawRecords
	var err error
	if raw.Trades, err = s.storage.Events().ListTrades(ctx); err != nil {
		return raw, err
	}
	if raw.Dividends, err = s.storage.Events().ListDividends(ctx); err != nil {
		return raw, err
	}
	if raw.Splits, err = s.storage.Events().ListSplits(ctx); err != nil {
		return raw, err
	}
	if raw.Acquisitions, err = s.storage.Events().ListAcquisitions(ctx); err != nil {
		return raw, err
	}
	return raw, nil
}

func groupBars(bars []models.PriceBar) map[string][]models.PriceBar {
	out := make(map[string][]models.PriceBar)
	for _, bar := range bars {
		symbol := strings.ToUpper(bar.Symbol)
		out[symbol] = append(out[symbol], bar)
	}
	return out
}
