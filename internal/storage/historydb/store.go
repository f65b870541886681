// Package historydb implements HistoryStore using BadgerHold.
// It holds every derived series: per-asset valuation history, portfolio
// totals, dimension summaries, hypothetical projections, and the
// current-position summary table. Only the history sync controllers write
// here; a wipe of this area is always recoverable from the event log.
package historydb

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/models"
)

// Store implements interfaces.HistoryStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// keySep is the composite key separator. A null byte cannot appear in a
// symbol or dimension value, so composite keys never collide.
const keySep = "\x00"

const dateKeyLayout = "2006-01-02"

// NewStore creates a new HistoryStore backed by BadgerHold.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create historydb path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open historydb at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("HistoryDB opened")
	return &Store{db: db, logger: logger}, nil
}

// dimensionRow wraps a DimensionSummaryRow with the dimension it belongs to,
// so all four dimension series share one table.
type dimensionRow struct {
	Dimension string
	models.DimensionSummaryRow
}

// append writes one row under its composite key. With overwrite the row
// replaces any existing one; otherwise an existing key is left untouched.
// Returns true when a row was written.
func (s *Store) append(key string, row interface{}, overwrite bool) (bool, error) {
	if overwrite {
		if err := s.db.Upsert(key, row); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := s.db.Insert(key, row); err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) AppendAssetRows(_ context.Context, rows []models.ValuedSnapshot, overwrite bool) (int, error) {
	written := 0
	for _, row := range rows {
		key := row.Date.Format(dateKeyLayout) + keySep + row.Symbol
		ok, err := s.append(key, row, overwrite)
		if err != nil {
			return written, fmt.Errorf("failed to append asset row %s/%s: %w", row.Symbol, row.Date.Format(dateKeyLayout), err)
		}
		if ok {
			written++
		}
	}
	s.logger.Debug().Int("written", written).Int("total", len(rows)).Bool("overwrite", overwrite).Msg("Asset rows appended")
	return written, nil
}

func (s *Store) LatestAssetDate(_ context.Context) (time.Time, error) {
	var latest time.Time
	err := s.db.ForEach(nil, func(row *models.ValuedSnapshot) error {
		if row.Date.After(latest) {
			latest = row.Date
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to scan asset rows: %w", err)
	}
	return latest, nil
}

func (s *Store) ListAssetRows(_ context.Context, symbols []string) ([]models.ValuedSnapshot, error) {
	var all []models.ValuedSnapshot
	if err := s.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list asset rows: %w", err)
	}
	rows := filterBySymbol(all, symbols, func(r models.ValuedSnapshot) string { return r.Symbol })
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows, nil
}

func (s *Store) AppendPortfolioRows(_ context.Context, rows []models.PortfolioValueRow, overwrite bool) (int, error) {
	written := 0
	for _, row := range rows {
		key := "portfolio" + keySep + row.Date.Format(dateKeyLayout)
		ok, err := s.append(key, row, overwrite)
		if err != nil {
			return written, fmt.Errorf("failed to append portfolio row %s: %w", row.Date.Format(dateKeyLayout), err)
		}
		if ok {
			written++
		}
	}
	return written, nil
}

func (s *Store) LatestPortfolioDate(_ context.Context) (time.Time, error) {
	var latest time.Time
	err := s.db.ForEach(nil, func(row *models.PortfolioValueRow) error {
		if row.Date.After(latest) {
			latest = row.Date
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to scan portfolio rows: %w", err)
	}
	return latest, nil
}

func (s *Store) ListPortfolioRows(_ context.Context) ([]models.PortfolioValueRow, error) {
	var rows []models.PortfolioValueRow
	if err := s.db.Find(&rows, nil); err != nil {
		return nil, fmt.Errorf("failed to list portfolio rows: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func (s *Store) AppendDimensionRows(_ context.Context, dim models.Dimension, rows []models.DimensionSummaryRow, overwrite bool) (int, error) {
	written := 0
	for _, row := range rows {
		key := string(dim) + keySep + row.Date.Format(dateKeyLayout) + keySep + row.DimensionValue
		ok, err := s.append(key, dimensionRow{Dimension: string(dim), DimensionSummaryRow: row}, overwrite)
		if err != nil {
			return written, fmt.Errorf("failed to append %s row %s: %w", dim, row.Date.Format(dateKeyLayout), err)
		}
		if ok {
			written++
		}
	}
	return written, nil
}

func (s *Store) LatestDimensionDate(_ context.Context, dim models.Dimension) (time.Time, error) {
	var latest time.Time
	err := s.db.ForEach(badgerhold.Where("Dimension").Eq(string(dim)), func(row *dimensionRow) error {
		if row.Date.After(latest) {
			latest = row.Date
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to scan %s rows: %w", dim, err)
	}
	return latest, nil
}

func (s *Store) ListDimensionRows(_ context.Context, dim models.Dimension) ([]models.DimensionSummaryRow, error) {
	var all []dimensionRow
	if err := s.db.Find(&all, badgerhold.Where("Dimension").Eq(string(dim))); err != nil {
		return nil, fmt.Errorf("failed to list %s rows: %w", dim, err)
	}
	rows := make([]models.DimensionSummaryRow, len(all))
	for i, r := range all {
		rows[i] = r.DimensionSummaryRow
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].DimensionValue < rows[j].DimensionValue
	})
	return rows, nil
}

func (s *Store) AppendHypotheticalRows(_ context.Context, rows []models.HypotheticalRow, overwrite bool) (int, error) {
	written := 0
	for _, row := range rows {
		key := "hypo" + keySep + row.Date.Format(dateKeyLayout) + keySep + row.Symbol
		ok, err := s.append(key, row, overwrite)
		if err != nil {
			return written, fmt.Errorf("failed to append hypothetical row %s/%s: %w", row.Symbol, row.Date.Format(dateKeyLayout), err)
		}
		if ok {
			written++
		}
	}
	return written, nil
}

// LatestHypotheticalDates reports the newest projected date per symbol, so
// each exited position resumes from its own high-water mark.
func (s *Store) LatestHypotheticalDates(_ context.Context) (map[string]time.Time, error) {
	latest := make(map[string]time.Time)
	err := s.db.ForEach(nil, func(row *models.HypotheticalRow) error {
		if row.Date.After(latest[row.Symbol]) {
			latest[row.Symbol] = row.Date
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan hypothetical rows: %w", err)
	}
	return latest, nil
}

func (s *Store) ListHypotheticalRows(_ context.Context, symbols []string) ([]models.HypotheticalRow, error) {
	var all []models.HypotheticalRow
	if err := s.db.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("failed to list hypothetical rows: %w", err)
	}
	rows := filterBySymbol(all, symbols, func(r models.HypotheticalRow) string { return r.Symbol })
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows, nil
}

// ReplaceSummaries swaps the summary table wholesale. The table is tiny (one
// row per symbol ever held), so delete-then-insert is simpler than diffing.
func (s *Store) ReplaceSummaries(_ context.Context, summaries []models.AssetSummary) error {
	var existing []models.AssetSummary
	if err := s.db.Find(&existing, nil); err != nil {
		return fmt.Errorf("failed to find existing summaries: %w", err)
	}
	for _, old := range existing {
		if err := s.db.Delete("summary"+keySep+old.Symbol, models.AssetSummary{}); err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to delete summary '%s': %w", old.Symbol, err)
		}
	}
	for _, sum := range summaries {
		if err := s.db.Upsert("summary"+keySep+sum.Symbol, sum); err != nil {
			return fmt.Errorf("failed to save summary '%s': %w", sum.Symbol, err)
		}
	}
	s.logger.Debug().Int("count", len(summaries)).Msg("Summary table replaced")
	return nil
}

func (s *Store) ListSummaries(_ context.Context) ([]models.AssetSummary, error) {
	var summaries []models.AssetSummary
	if err := s.db.Find(&summaries, nil); err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Symbol < summaries[j].Symbol })
	return summaries, nil
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func filterBySymbol[T any](all []T, symbols []string, symbolOf func(T) string) []T {
	if len(symbols) == 0 {
		return all
	}
	want := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		want[strings.ToUpper(sym)] = true
	}
	var out []T
	for _, row := range all {
		if want[strings.ToUpper(symbolOf(row))] {
			out = append(out, row)
		}
	}
	return out
}
