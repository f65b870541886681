package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kineticrick/folio/internal/app"
	"github.com/kineticrick/folio/internal/models"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	series := flag.String("series", "all", "series to sync: all, assets, portfolio, dimension, hypothetical, summary")
	dimension := flag.String("dimension", "", "dimension name when -series=dimension (sector, asset_type, account_type, geography)")
	overwrite := flag.Bool("overwrite", false, "replace persisted rows instead of appending missing ones")
	flag.Parse()

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()
	var reports []models.SyncReport

	switch strings.ToLower(*series) {
	case "all":
		reports, err = a.HistoryService.SyncAll(ctx, *overwrite)
	case "assets":
		reports, err = one(a.HistoryService.SyncAssets(ctx, *overwrite))
	case "portfolio":
		reports, err = one(a.HistoryService.SyncPortfolio(ctx, *overwrite))
	case "dimension":
		dim := models.Dimension(strings.ToLower(*dimension))
		reports, err = one(a.HistoryService.SyncDimension(ctx, dim, *overwrite))
	case "hypothetical":
		reports, err = one(a.HistoryService.SyncHypothetical(ctx, *overwrite))
	case "summary":
		_, err = a.HistoryService.RebuildSummary(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown series '%s'\n", *series)
		os.Exit(2)
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("Sync failed")
		os.Exit(1)
	}

	for _, r := range reports {
		if r.UpToDate {
			a.Logger.Info().Str("series", r.Series).Msg("Up to date")
			continue
		}
		a.Logger.Info().
			Str("series", r.Series).
			Str("run_id", r.RunID).
			Int("rows", r.RowsWritten).
			Int("failures", len(r.Failures)).
			Int("price_gaps", len(r.PriceGaps)).
			Msg("Synced")
		for _, f := range r.Failures {
			a.Logger.Warn().Str("symbol", f.Symbol).Str("reason", f.Reason).Msg("Symbol skipped")
		}
	}
}

func one(report *models.SyncReport, err error) ([]models.SyncReport, error) {
	if err != nil {
		return nil, err
	}
	return []models.SyncReport{*report}, nil
}
