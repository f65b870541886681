package history

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/models"
)

// RebuildSummary replays the full event log into the current-position summary
// table: one row per symbol ever held, with quantity, cost basis, cumulative
// dividends, and first/last purchase dates. The table is replaced wholesale.
func (s *Service) RebuildSummary(ctx context.Context) ([]models.AssetSummary, error) {
	engine, symbols, err := s.replayEngine(ctx)
	if err != nil {
		return nil, err
	}

	trades, err := s.storage.Events().ListTrades(ctx)
	if err != nil {
		return nil, err
	}
	firstBuy := make(map[string]time.Time)
	lastBuy := make(map[string]time.Time)
	for _, t := range trades {
		if !strings.EqualFold(t.Action, "buy") {
			continue
		}
		symbol := strings.ToUpper(t.Symbol)
		if firstBuy[symbol].IsZero() || t.Date.Before(firstBuy[symbol]) {
			firstBuy[symbol] = t.Date
		}
		if t.Date.After(lastBuy[symbol]) {
			lastBuy[symbol] = t.Date
		}
	}

	var summaries []models.AssetSummary
	for _, symbol := range symbols {
		snaps, err := engine.Replay(ctx, symbol)
		if err != nil {
			s.logger.Warn().Str("symbol", symbol).Err(err).Msg("Skipping symbol in summary rebuild")
			continue
		}
		if len(snaps) == 0 {
			continue
		}
		dividends, _ := engine.Dividends(ctx, symbol)

		name := symbol
		if entity, err := s.storage.Events().GetEntity(ctx, symbol); err == nil {
			name = entity.Name
		}

		last := snaps[len(snaps)-1]
		summaries = append(summaries, models.AssetSummary{
			Symbol:            symbol,
			Name:              name,
			Quantity:          last.Quantity,
			CostBasis:         math.Round(last.CostBasis*100) / 100,
			TotalDividend:     math.Round(dividends*100) / 100,
			FirstPurchaseDate: firstBuy[symbol],
			LastPurchaseDate:  lastBuy[symbol],
		})
	}

	if err := s.storage.History().ReplaceSummaries(ctx, summaries); err != nil {
		return nil, err
	}
	s.cache.EvictTag(common.CacheTagHistory)
	s.logger.Info().Int("symbols", len(summaries)).Msg("Summary table rebuilt")
	return summaries, nil
}

// positionRow mirrors one line of a brokerage positions export.
type positionRow struct {
	Symbol   string  `csv:"Symbol"`
	Quantity float64 `csv:"Quantity"`
}

// ReconcileHoldings compares current summary positions against a brokerage
// positions CSV. Disagreements are reported, never fatal: the brokerage
// export is a cross-check, not a source of truth.
func (s *Service) ReconcileHoldings(ctx context.Context, positionsPath string) ([]models.ReconcileIssue, error) {
	f, err := os.Open(positionsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open positions file: %w", err)
	}
	defer f.Close()

	var positions []positionRow
	if err := gocsv.UnmarshalFile(f, &positions); err != nil {
		return nil, fmt.Errorf("failed to parse positions file: %w", err)
	}

	summaries, err := s.storage.History().ListSummaries(ctx)
	if err != nil {
		return nil, err
	}
	held := make(map[string]float64, len(summaries))
	for _, sum := range summaries {
		if sum.Quantity > 0 {
			held[strings.ToUpper(sum.Symbol)] = sum.Quantity
		}
	}

	var issues []models.ReconcileIssue
	seen := make(map[string]bool, len(positions))
	for _, pos := range positions {
		symbol := strings.ToUpper(strings.TrimSpace(pos.Symbol))
		seen[symbol] = true
		quantity, ok := held[symbol]
		switch {
		case !ok:
			issues = append(issues, models.ReconcileIssue{
				Symbol:  symbol,
				Problem: "held at brokerage but absent from ledger",
			})
		case math.Abs(quantity-pos.Quantity) > 1e-6:
			issues = append(issues, models.ReconcileIssue{
				Symbol:  symbol,
				Problem: fmt.Sprintf("quantity mismatch: ledger %.4f, brokerage %.4f", quantity, pos.Quantity),
			})
		}
	}
	for symbol := range held {
		if !seen[symbol] {
			issues = append(issues, models.ReconcileIssue{
				Symbol:  symbol,
				Problem: "held in ledger but absent from brokerage export",
			})
		}
	}

	for _, issue := range issues {
		s.logger.Warn().Str("symbol", issue.Symbol).Str("problem", issue.Problem).Msg("Holdings reconciliation issue")
	}
	return issues, nil
}
