// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"time"

	"github.com/kineticrick/folio/internal/models"
)

// StorageManager coordinates the two storage areas: the raw event log and the
// derived history series.
type StorageManager interface {
	Events() EventStore
	History() HistoryStore
	Close() error
}

// EventStore persists raw portfolio events and the entities they reference.
// Raw records are the source of truth; everything in HistoryStore derives
// from them.
type EventStore interface {
	SaveTrades(ctx context.Context, trades []models.TradeRecord) (int, error)
	ListTrades(ctx context.Context) ([]models.TradeRecord, error)

	SaveDividends(ctx context.Context, dividends []models.DividendRecord) (int, error)
	ListDividends(ctx context.Context) ([]models.DividendRecord, error)

	SaveSplits(ctx context.Context, splits []models.SplitRecord) (int, error)
	ListSplits(ctx context.Context) ([]models.SplitRecord, error)

	SaveAcquisitions(ctx context.Context, acquisitions []models.AcquisitionRecord) (int, error)
	ListAcquisitions(ctx context.Context) ([]models.AcquisitionRecord, error)

	SaveEntities(ctx context.Context, entities []models.Entity) (int, error)
	GetEntity(ctx context.Context, symbol string) (*models.Entity, error)
	ListEntities(ctx context.Context) ([]models.Entity, error)

	Close() error
}

// HistoryStore persists derived history series. Rows are keyed by
// (date, symbol) or (date, dimension value); writes are append-only
// insert-ignore unless overwrite is requested, which replaces on conflict.
// Only the history sync controllers write here.
type HistoryStore interface {
	AppendAssetRows(ctx context.Context, rows []models.ValuedSnapshot, overwrite bool) (int, error)
	LatestAssetDate(ctx context.Context) (time.Time, error)
	ListAssetRows(ctx context.Context, symbols []string) ([]models.ValuedSnapshot, error)

	AppendPortfolioRows(ctx context.Context, rows []models.PortfolioValueRow, overwrite bool) (int, error)
	LatestPortfolioDate(ctx context.Context) (time.Time, error)
	ListPortfolioRows(ctx context.Context) ([]models.PortfolioValueRow, error)

	AppendDimensionRows(ctx context.Context, dim models.Dimension, rows []models.DimensionSummaryRow, overwrite bool) (int, error)
	LatestDimensionDate(ctx context.Context, dim models.Dimension) (time.Time, error)
	ListDimensionRows(ctx context.Context, dim models.Dimension) ([]models.DimensionSummaryRow, error)

	AppendHypotheticalRows(ctx context.Context, rows []models.HypotheticalRow, overwrite bool) (int, error)
	LatestHypotheticalDates(ctx context.Context) (map[string]time.Time, error)
	ListHypotheticalRows(ctx context.Context, symbols []string) ([]models.HypotheticalRow, error)

	ReplaceSummaries(ctx context.Context, summaries []models.AssetSummary) error
	ListSummaries(ctx context.Context) ([]models.AssetSummary, error)

	Close() error
}
