package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kineticrick/folio/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	positions := flag.String("reconcile", "", "optional brokerage positions CSV to reconcile against after import")
	flag.Parse()

	a, err := app.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()

	report, err := a.ImportService.ImportAll(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Import failed, nothing was written")
		os.Exit(1)
	}

	a.Logger.Info().
		Int("files", report.FilesProcessed).
		Int("entities", report.Entities).
		Int("trades", report.Trades).
		Int("dividends", report.Dividends).
		Int("splits", report.Splits).
		Int("acquisitions", report.Acquisitions).
		Int("skipped_rows", report.SkippedRows).
		Msg("Import complete")

	// Refresh the summary table so reconciliation sees the new events.
	summaries, err := a.HistoryService.RebuildSummary(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("Summary rebuild failed")
		os.Exit(1)
	}
	a.Logger.Info().Int("symbols", len(summaries)).Msg("Summary table rebuilt")

	if *positions != "" {
		issues, err := a.HistoryService.ReconcileHoldings(ctx, *positions)
		if err != nil {
			a.Logger.Error().Err(err).Msg("Reconciliation failed")
			os.Exit(1)
		}
		if len(issues) == 0 {
			a.Logger.Info().Msg("Holdings reconcile clean")
		}
	}
}
