// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"

	"github.com/kineticrick/folio/internal/models"
)

// ImporterService ingests brokerage CSV exports into the raw event store.
// Validation fails closed: any malformed record or unknown symbol aborts the
// whole batch before a single event is accepted.
type ImporterService interface {
	ImportAll(ctx context.Context) (*models.ImportReport, error)
}

// HistoryService orchestrates incremental recomputation of every persisted
// derived series. It is the only component allowed to mutate the history
// store.
type HistoryService interface {
	// SyncAll refreshes every series that is stale relative to the last
	// completed trading day. With overwrite set, recomputed rows replace
	// persisted ones instead of being insert-ignored.
	SyncAll(ctx context.Context, overwrite bool) ([]models.SyncReport, error)

	SyncAssets(ctx context.Context, overwrite bool) (*models.SyncReport, error)
	SyncPortfolio(ctx context.Context, overwrite bool) (*models.SyncReport, error)
	SyncDimension(ctx context.Context, dim models.Dimension, overwrite bool) (*models.SyncReport, error)
	SyncHypothetical(ctx context.Context, overwrite bool) (*models.SyncReport, error)

	// RebuildSummary recomputes the current-position summary table.
	RebuildSummary(ctx context.Context) ([]models.AssetSummary, error)

	// ReconcileHoldings cross-checks summary positions against a brokerage
	// positions CSV. Disagreements are reported, never fatal.
	ReconcileHoldings(ctx context.Context, positionsPath string) ([]models.ReconcileIssue, error)
}
