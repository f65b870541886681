// Package eventdb implements EventStore using BadgerHold.
// It holds the raw portfolio event log: trades, dividends, splits,
// acquisitions, and the entity registry they reference.
package eventdb

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/timshannon/badgerhold/v4"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/models"
)

// Store implements interfaces.EventStore using BadgerHold.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// keySep is the composite key separator. Using a null byte prevents
// collisions when a symbol or counterparty contains "." or ":" characters.
const keySep = "\x00"

// NewStore creates a new EventStore backed by BadgerHold.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create eventdb path %s: %w", path, err)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	opts.Logger = nil
	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open eventdb at %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("EventDB opened")
	return &Store{db: db, logger: logger}, nil
}

const dateKeyLayout = "2006-01-02"

func tradeKey(t models.TradeRecord) string {
	return strings.Join([]string{
		t.Date.Format(dateKeyLayout), t.Symbol, t.Action,
		fmt.Sprintf("%g", t.NumShares), fmt.Sprintf("%g", t.PricePerShare),
	}, keySep)
}

func dividendKey(d models.DividendRecord) string {
	return strings.Join([]string{
		d.Date.Format(dateKeyLayout), d.Symbol, fmt.Sprintf("%g", d.Amount),
	}, keySep)
}

func splitKey(sp models.SplitRecord) string {
	return sp.DistributionDate.Format(dateKeyLayout) + keySep + sp.Symbol
}

func acquisitionKey(a models.AcquisitionRecord) string {
	return a.Date.Format(dateKeyLayout) + keySep + a.Symbol + keySep + a.Acquirer
}

// SaveTrades inserts trades, skipping rows already present. Raw events are
// immutable, so a key collision means the same export was imported twice.
func (s *Store) SaveTrades(_ context.Context, trades []models.TradeRecord) (int, error) {
	inserted := 0
	for _, t := range trades {
		if err := s.db.Insert(tradeKey(t), t); err != nil {
			if err == badgerhold.ErrKeyExists {
				continue
			}
			return inserted, fmt.Errorf("failed to save trade %s %s: %w", t.Symbol, t.Date.Format(dateKeyLayout), err)
		}
		inserted++
	}
	s.logger.Debug().Int("inserted", inserted).Int("total", len(trades)).Msg("Trades saved")
	return inserted, nil
}

func (s *Store) ListTrades(_ context.Context) ([]models.TradeRecord, error) {
	var trades []models.TradeRecord
	if err := s.db.Find(&trades, nil); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	sort.SliceStable(trades, func(i, j int) bool { return trades[i].Date.Before(trades[j].Date) })
	return trades, nil
}

func (s *Store) SaveDividends(_ context.Context, dividends []models.DividendRecord) (int, error) {
	inserted := 0
	for _, d := range dividends {
		if err := s.db.Insert(dividendKey(d), d); err != nil {
			if err == badgerhold.ErrKeyExists {
				continue
			}
			return inserted, fmt.Errorf("failed to save dividend %s %s: %w", d.Symbol, d.Date.Format(dateKeyLayout), err)
		}
		inserted++
	}
	return inserted, nil
}

func (s *Store) ListDividends(_ context.Context) ([]models.DividendRecord, error) {
	var dividends []models.DividendRecord
	if err := s.db.Find(&dividends, nil); err != nil {
		return nil, fmt.Errorf("failed to list dividends: %w", err)
	}
	sort.SliceStable(dividends, func(i, j int) bool { return dividends[i].Date.Before(dividends[j].Date) })
	return dividends, nil
}

func (s *Store) SaveSplits(_ context.Context, splits []models.SplitRecord) (int, error) {
	inserted := 0
	for _, sp := range splits {
		if err := s.db.Insert(splitKey(sp), sp); err != nil {
			if err == badgerhold.ErrKeyExists {
				continue
			}
			return inserted, fmt.Errorf("failed to save split %s: %w", sp.Symbol, err)
		}
		inserted++
	}
	return inserted, nil
}

func (s *Store) ListSplits(_ context.Context) ([]models.SplitRecord, error) {
	var splits []models.SplitRecord
	if err := s.db.Find(&splits, nil); err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	sort.SliceStable(splits, func(i, j int) bool {
		return splits[i].DistributionDate.Before(splits[j].DistributionDate)
	})
	return splits, nil
}

func (s *Store) SaveAcquisitions(_ context.Context, acquisitions []models.AcquisitionRecord) (int, error) {
	inserted := 0
	for _, a := range acquisitions {
		if err := s.db.Insert(acquisitionKey(a), a); err != nil {
			if err == badgerhold.ErrKeyExists {
				continue
			}
			return inserted, fmt.Errorf("failed to save acquisition %s->%s: %w", a.Symbol, a.Acquirer, err)
		}
		inserted++
	}
	return inserted, nil
}

func (s *Store) ListAcquisitions(_ context.Context) ([]models.AcquisitionRecord, error) {
	var acquisitions []models.AcquisitionRecord
	if err := s.db.Find(&acquisitions, nil); err != nil {
		return nil, fmt.Errorf("failed to list acquisitions: %w", err)
	}
	sort.SliceStable(acquisitions, func(i, j int) bool {
		return acquisitions[i].Date.Before(acquisitions[j].Date)
	})
	return acquisitions, nil
}

// SaveEntities upserts the entity registry. Entities are reference data, so a
// re-import with updated classifications replaces in place.
func (s *Store) SaveEntities(_ context.Context, entities []models.Entity) (int, error) {
	saved := 0
	for _, e := range entities {
		if err := s.db.Upsert(strings.ToUpper(e.Symbol), e); err != nil {
			return saved, fmt.Errorf("failed to save entity '%s': %w", e.Symbol, err)
		}
		saved++
	}
	s.logger.Debug().Int("count", saved).Msg("Entities saved")
	return saved, nil
}

func (s *Store) GetEntity(_ context.Context, symbol string) (*models.Entity, error) {
	var entity models.Entity
	if err := s.db.Get(strings.ToUpper(symbol), &entity); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, &models.UnknownSymbolError{Symbol: symbol, Source: "eventdb"}
		}
		return nil, fmt.Errorf("failed to get entity '%s': %w", symbol, err)
	}
	return &entity, nil
}

func (s *Store) ListEntities(_ context.Context) ([]models.Entity, error) {
	var entities []models.Entity
	if err := s.db.Find(&entities, nil); err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].Symbol < entities[j].Symbol })
	return entities, nil
}

// Close shuts down the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
