// Package prices provides the batch price feed consumed by the valuation
// pipeline. It fronts the EODHD client with caching, blacklist exclusion,
// and per-symbol failure tolerance: one delisted symbol never sinks a batch.
package prices

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/interfaces"
	"github.com/kineticrick/folio/internal/models"
	"github.com/kineticrick/folio/internal/timeseries"
)

// Service implements PriceFeed
type Service struct {
	eodhd  interfaces.EODHDClient
	cache  interfaces.Cache
	config *common.Config
	logger *common.Logger
}

// NewService creates a new price feed service
func NewService(eodhd interfaces.EODHDClient, cache interfaces.Cache, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		eodhd:  eodhd,
		cache:  cache,
		config: config,
		logger: logger,
	}
}

const cacheKeySep = "\x00"

// GetHistoricalPrices fetches daily closes for the symbols over [start, end].
// Blacklisted symbols and symbols whose fetch fails are excluded with a
// reported gap instead of failing the batch. With forwardFill, business days
// inside the range with no settled close inherit the previous close.
func (s *Service) GetHistoricalPrices(ctx context.Context, symbols []string, start, end time.Time, forwardFill bool) ([]models.PriceBar, []models.PriceGap, error) {
	var bars []models.PriceBar
	var gaps []models.PriceGap

	for _, symbol := range symbols {
		symbol = strings.ToUpper(symbol)
		if s.config.IsBlacklisted(symbol) {
			s.logger.Debug().Str("symbol", symbol).Msg("Skipping blacklisted symbol")
			gaps = append(gaps, models.PriceGap{Symbol: symbol, Reason: "blacklisted"})
			continue
		}

		symBars, err := s.historicalFor(ctx, symbol, start, end)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Price fetch failed, excluding symbol")
			gaps = append(gaps, models.PriceGap{Symbol: symbol, Reason: fmt.Sprintf("fetch failed: %v", err)})
			continue
		}
		if forwardFill {
			symBars = fillBusinessDays(symBars, end)
		}
		bars = append(bars, symBars...)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		if !bars[i].Date.Equal(bars[j].Date) {
			return bars[i].Date.Before(bars[j].Date)
		}
		return bars[i].Symbol < bars[j].Symbol
	})
	return bars, gaps, nil
}

// historicalFor returns one symbol's bars, from cache when fresh.
func (s *Service) historicalFor(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	key := strings.Join([]string{"eod", symbol, start.Format("2006-01-02"), end.Format("2006-01-02")}, cacheKeySep)
	if cached, ok := s.cache.Get(key); ok {
		if symBars, ok := cached.([]models.PriceBar); ok {
			return symBars, nil
		}
	}

	symBars, err := s.eodhd.GetEOD(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, symBars, common.FreshnessHistoricalPrices, common.CacheTagPrices)
	return symBars, nil
}

// GetCurrentPrice returns live per-symbol prices. Symbols without a live
// quote are absent from the map, never zero.
func (s *Service) GetCurrentPrice(ctx context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(symbol)
		if s.config.IsBlacklisted(symbol) {
			continue
		}

		key := "rt" + cacheKeySep + symbol
		if cached, ok := s.cache.Get(key); ok {
			if price, ok := cached.(float64); ok {
				out[symbol] = price
				continue
			}
		}

		price, err := s.eodhd.GetRealTime(ctx, symbol)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Live quote failed, skipping symbol")
			continue
		}
		out[symbol] = price
		s.cache.Set(key, price, common.FreshnessCurrentPrice, common.CacheTagPrices)
	}
	return out, nil
}

// fillBusinessDays forward-fills holes in one symbol's bars: every business
// day between the first bar and end gets a close, inherited from the
// previous bar when the market published none.
func fillBusinessDays(bars []models.PriceBar, end time.Time) []models.PriceBar {
	if len(bars) == 0 {
		return bars
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	closes := make(map[time.Time]float64, len(bars))
	for _, bar := range bars {
		closes[timeseries.Day(bar.Date)] = bar.Close
	}

	symbol := bars[0].Symbol
	first := timeseries.Day(bars[0].Date)
	last := timeseries.Day(end)

	var filled []models.PriceBar
	prev := bars[0].Close
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if !timeseries.IsBusinessDay(day) {
			continue
		}
		close, ok := closes[day]
		if !ok {
			close = prev
		}
		filled = append(filled, models.PriceBar{Date: day, Symbol: symbol, Close: close})
		prev = close
	}
	return filled
}
