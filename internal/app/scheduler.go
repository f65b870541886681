package app

import (
	"context"
	"time"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/interfaces"
)

// StartScheduler launches the background history refresher using the
// configured server refresh interval.
func (a *App) StartScheduler() {
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	go runScheduler(ctx, a.HistoryService, a.Logger, a.Config.Server.GetRefreshInterval())
}

// runScheduler refreshes every derived history series on a fixed interval.
// Runs between trading days are cheap no-ops: the staleness check inside each
// sync controller returns up-to-date reports without touching the price feed.
func runScheduler(ctx context.Context, historyService interfaces.HistoryService, logger *common.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("History scheduler: stopped")
			return
		case <-ticker.C:
			refreshHistory(ctx, historyService, logger)
		}
	}
}

func refreshHistory(ctx context.Context, historyService interfaces.HistoryService, logger *common.Logger) {
	start := time.Now()

	reports, err := historyService.SyncAll(ctx, false)
	if err != nil {
		logger.Warn().Err(err).Msg("History refresh: sync failed")
		return
	}

	rows := 0
	upToDate := true
	for _, r := range reports {
		rows += r.RowsWritten
		if !r.UpToDate {
			upToDate = false
		}
	}
	if upToDate {
		logger.Debug().Msg("History refresh: already up to date")
		return
	}

	logger.Info().
		Int("series", len(reports)).
		Int("rows", rows).
		Dur("elapsed", time.Since(start)).
		Msg("History refresh: complete")
}
