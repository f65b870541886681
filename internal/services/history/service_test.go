package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/models"
	"github.com/kineticrick/folio/internal/storage"
	"github.com/kineticrick/folio/internal/storage/cache"
	"github.com/kineticrick/folio/internal/timeseries"
)

// fakeFeed serves canned closes keyed by symbol and ISO date.
type fakeFeed struct {
	closes map[string]map[string]float64
}

func (f *fakeFeed) GetHistoricalPrices(_ context.Context, symbols []string, start, end time.Time, _ bool) ([]models.PriceBar, []models.PriceGap, error) {
	var bars []models.PriceBar
	for _, symbol := range symbols {
		for d := timeseries.Day(start); !d.After(timeseries.Day(end)); d = d.AddDate(0, 0, 1) {
			if close, ok := f.closes[symbol][d.Format("2006-01-02")]; ok {
				bars = append(bars, models.PriceBar{Date: d, Symbol: symbol, Close: close})
			}
		}
	}
	return bars, nil, nil
}

func (f *fakeFeed) GetCurrentPrice(_ context.Context, symbols []string) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Test week: 2024-01-08 (Mon) through 2024-01-12 (Fri).
func newTestService(t *testing.T, feed *fakeFeed, now time.Time) (*Service, *storage.Manager) {
	t.Helper()
	logger := common.NewSilentLogger()
	config := common.NewDefaultConfig()
	root := t.TempDir()
	config.Storage.Events.Path = filepath.Join(root, "events")
	config.Storage.History.Path = filepath.Join(root, "history")

	mgr, err := storage.NewManager(logger, config)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	svc := NewService(mgr, feed, cache.New(), config, logger)
	svc.SetNow(func() time.Time { return now })
	return svc, mgr
}

func seedTrades(t *testing.T, mgr *storage.Manager, trades ...models.TradeRecord) {
	t.Helper()
	if _, err := mgr.Events().SaveTrades(context.Background(), trades); err != nil {
		t.Fatalf("SaveTrades: %v", err)
	}
}

func msftWeekFeed() *fakeFeed {
	return &fakeFeed{closes: map[string]map[string]float64{
		"MSFT": {
			"2024-01-08": 150,
			"2024-01-09": 152,
			"2024-01-10": 155,
			"2024-01-11": 160,
			"2024-01-12": 161,
		},
	}}
}

func TestSyncAssetsFIFOBasis(t *testing.T) {
	svc, mgr := newTestService(t, msftWeekFeed(), day(2024, 1, 12))
	ctx := context.Background()

	seedTrades(t, mgr,
		models.TradeRecord{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 100, PricePerShare: 150},
		models.TradeRecord{Date: day(2024, 1, 9), Symbol: "MSFT", Action: "buy", NumShares: 50, PricePerShare: 155},
		models.TradeRecord{Date: day(2024, 1, 10), Symbol: "MSFT", Action: "sell", NumShares: 75},
	)

	report, err := svc.SyncAssets(ctx, false)
	if err != nil {
		t.Fatalf("SyncAssets: %v", err)
	}
	if report.UpToDate {
		t.Error("fresh sync reported up to date")
	}
	// Mon through Thu; Friday is still open and excluded.
	if report.RowsWritten != 4 {
		t.Errorf("expected 4 rows, got %d", report.RowsWritten)
	}

	rows, err := mgr.History().ListAssetRows(ctx, []string{"MSFT"})
	if err != nil {
		t.Fatalf("ListAssetRows: %v", err)
	}
	last := rows[len(rows)-1]
	if !last.Date.Equal(day(2024, 1, 11)) {
		t.Errorf("expected last row on Thu, got %v", last.Date)
	}
	// Selling 75 consumes the oldest lot first: 25@150 + 50@155 remain.
	if last.Quantity != 75 || last.CostBasis != 11500 {
		t.Errorf("got quantity %.2f basis %.2f", last.Quantity, last.CostBasis)
	}
	if last.Value != 12000 {
		t.Errorf("expected value 12000, got %.2f", last.Value)
	}
	if last.PercentReturn != 4.35 {
		t.Errorf("expected return 4.35, got %.2f", last.PercentReturn)
	}
}

func TestSyncAssetsIdempotent(t *testing.T) {
	svc, mgr := newTestService(t, msftWeekFeed(), day(2024, 1, 12))
	ctx := context.Background()

	seedTrades(t, mgr,
		models.TradeRecord{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 10, PricePerShare: 150},
	)

	if _, err := svc.SyncAssets(ctx, false); err != nil {
		t.Fatalf("SyncAssets: %v", err)
	}
	report, err := svc.SyncAssets(ctx, false)
	if err != nil {
		t.Fatalf("SyncAssets rerun: %v", err)
	}
	if !report.UpToDate || report.RowsWritten != 0 {
		t.Errorf("expected up-to-date rerun, got %+v", report)
	}
}

func TestSyncAssetsWeekendGap(t *testing.T) {
	// Synced through Thursday; checked again on Sunday. Friday's close has
	// settled, so the series is stale despite the weekend.
	svc, mgr := newTestService(t, msftWeekFeed(), day(2024, 1, 12))
	ctx := context.Background()

	seedTrades(t, mgr,
		models.TradeRecord{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 10, PricePerShare: 150},
	)
	if _, err := svc.SyncAssets(ctx, false); err != nil {
		t.Fatalf("SyncAssets: %v", err)
	}

	svc.SetNow(func() time.Time { return day(2024, 1, 14) })
	report, err := svc.SyncAssets(ctx, false)
	if err != nil {
		t.Fatalf("SyncAssets Sunday: %v", err)
	}
	if report.UpToDate {
		t.Fatal("expected stale series on Sunday")
	}
	if report.RowsWritten != 1 {
		t.Errorf("expected 1 new row (Friday), got %d", report.RowsWritten)
	}

	report, _ = svc.SyncAssets(ctx, false)
	if !report.UpToDate {
		t.Error("expected up to date after Friday row appended")
	}
}

func TestSyncAssetsReplayFailureScopedToSymbol(t *testing.T) {
	feed := msftWeekFeed()
	svc, mgr := newTestService(t, feed, day(2024, 1, 12))
	ctx := context.Background()

	seedTrades(t, mgr,
		models.TradeRecord{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 10, PricePerShare: 150},
		models.TradeRecord{Date: day(2024, 1, 8), Symbol: "AAA", Action: "buy", NumShares: 10, PricePerShare: 10},
		models.TradeRecord{Date: day(2024, 1, 8), Symbol: "BBB", Action: "buy", NumShares: 10, PricePerShare: 10},
	)
	// A acquires B while B acquires A: unresolvable.
	if _, err := mgr.Events().SaveAcquisitions(ctx, []models.AcquisitionRecord{
		{Date: day(2024, 1, 10), Symbol: "AAA", Acquirer: "BBB", ConversionRatio: 1},
		{Date: day(2024, 1, 10), Symbol: "BBB", Acquirer: "AAA", ConversionRatio: 1},
	}); err != nil {
		t.Fatalf("SaveAcquisitions: %v", err)
	}

	report, err := svc.SyncAssets(ctx, false)
	if err != nil {
		t.Fatalf("SyncAssets: %v", err)
	}
	if len(report.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", report.Failures)
	}

	rows, _ := mgr.History().ListAssetRows(ctx, []string{"MSFT"})
	if len(rows) == 0 {
		t.Error("healthy symbol should still sync")
	}
}

func TestSyncPortfolioAndDimension(t *testing.T) {
	feed := &fakeFeed{closes: map[string]map[string]float64{
		"MSFT": {"2024-01-08": 110},
		"AAPL": {"2024-01-08": 98},
	}}
	svc, mgr := newTestService(t, feed, day(2024, 1, 9))
	ctx := context.Background()

	seedTrades(t, mgr,
		models.TradeRecord{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 10, PricePerShare: 100},
		models.TradeRecord{Date: day(2024, 1, 8), Symbol: "AAPL", Action: "buy", NumShares: 10, PricePerShare: 100},
	)
	if _, err := mgr.Events().SaveEntities(ctx, []models.Entity{
		{Symbol: "MSFT", Name: "Microsoft", Sector: "Technology", AssetType: "stock", Geography: "US", AccountType: "taxable"},
		{Symbol: "AAPL", Name: "Apple", Sector: "Technology", AssetType: "stock", Geography: "US", AccountType: "taxable"},
	}); err != nil {
		t.Fatalf("SaveEntities: %v", err)
	}

	if _, err := svc.SyncAssets(ctx, false); err != nil {
		t.Fatalf("SyncAssets: %v", err)
	}

	portReport, err := svc.SyncPortfolio(ctx, false)
	if err != nil {
		t.Fatalf("SyncPortfolio: %v", err)
	}
	if portReport.RowsWritten != 1 {
		t.Errorf("expected 1 portfolio row, got %d", portReport.RowsWritten)
	}
	portRows, _ := mgr.History().ListPortfolioRows(ctx)
	if portRows[0].Value != 1100+980 {
		t.Errorf("expected total 2080, got %.2f", portRows[0].Value)
	}

	if _, err := svc.SyncDimension(ctx, models.DimensionSector, false); err != nil {
		t.Fatalf("SyncDimension: %v", err)
	}
	dimRows, _ := mgr.History().ListDimensionRows(ctx, models.DimensionSector)
	if len(dimRows) != 1 {
		t.Fatalf("expected 1 sector row, got %d", len(dimRows))
	}
	// Returns of +10% and -2% average to 4.0.
	if dimRows[0].DimensionValue != "Technology" || dimRows[0].AvgPercentReturn != 4.0 {
		t.Errorf("got %+v", dimRows[0])
	}
}

func TestSyncHypothetical(t *testing.T) {
	feed := &fakeFeed{closes: map[string]map[string]float64{
		"MSFT": {
			"2024-01-08": 100,
			"2024-01-09": 102,
			"2024-01-10": 105,
			"2024-01-11": 107,
		},
	}}
	svc, mgr := newTestService(t, feed, day(2024, 1, 12))
	ctx := context.Background()

	seedTrades(t, mgr,
		models.TradeRecord{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 10, PricePerShare: 100},
		models.TradeRecord{Date: day(2024, 1, 9), Symbol: "MSFT", Action: "sell", NumShares: 10},
	)

	report, err := svc.SyncHypothetical(ctx, false)
	if err != nil {
		t.Fatalf("SyncHypothetical: %v", err)
	}
	if report.RowsWritten != 2 {
		t.Fatalf("expected 2 rows (Wed, Thu), got %d", report.RowsWritten)
	}

	rows, _ := mgr.History().ListHypotheticalRows(ctx, []string{"MSFT"})
	if rows[0].Quantity != 10 || rows[0].Value != 1050 {
		t.Errorf("got %+v", rows[0])
	}
	if rows[1].Value != 1070 {
		t.Errorf("got %+v", rows[1])
	}

	// Rerun picks up from the persisted high-water mark.
	report, err = svc.SyncHypothetical(ctx, false)
	if err != nil {
		t.Fatalf("SyncHypothetical rerun: %v", err)
	}
	if !report.UpToDate || report.RowsWritten != 0 {
		t.Errorf("expected up-to-date rerun, got %+v", report)
	}
}

func TestSyncHypotheticalIgnoresOpenPositions(t *testing.T) {
	svc, mgr := newTestService(t, msftWeekFeed(), day(2024, 1, 12))
	ctx := context.Background()

	seedTrades(t, mgr,
		models.TradeRecord{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 10, PricePerShare: 150},
	)

	report, err := svc.SyncHypothetical(ctx, false)
	if err != nil {
		t.Fatalf("SyncHypothetical: %v", err)
	}
	if !report.UpToDate || report.RowsWritten != 0 {
		t.Errorf("open position produced hypothetical rows: %+v", report)
	}
}

func TestSyncAllOrdering(t *testing.T) {
	svc, mgr := newTestService(t, msftWeekFeed(), day(2024, 1, 12))
	ctx := context.Background()

	seedTrades(t, mgr,
		models.TradeRecord{Date: day(2024, 1, 8), Symbol: "MSFT", Action: "buy", NumShares: 10, PricePerShare: 150},
	)
	if _, err := mgr.Events().SaveEntities(ctx, []models.Entity{
		{Symbol: "MSFT", Name: "Microsoft", Sector: "Technology", AssetType: "stock", Geography: "US", AccountType: "taxable"},
	}); err != nil {
		t.Fatalf("SaveEntities: %v", err)
	}

	reports, err := svc.SyncAll(ctx, false)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	// assets + portfolio + 4 dimensions + hypothetical
	if len(reports) != 7 {
		t.Fatalf("expected 7 reports, got %d", len(reports))
	}
	for _, r := range reports {
		if r.RunID == "" {
			t.Error("report missing run ID")
		}
	}

	summaries, _ := mgr.History().ListSummaries(ctx)
	if len(summaries) != 1 {
		t.Errorf("SyncAll should rebuild summaries, got %d", len(summaries))
	}
}
