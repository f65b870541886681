// Package importer ingests brokerage CSV exports into the raw event store.
//
// Validation fails closed: a single malformed row or unknown symbol aborts
// the whole batch before anything is written, so the store never holds a
// partial import.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kineticrick/folio/internal/common"
	"github.com/kineticrick/folio/internal/interfaces"
	"github.com/kineticrick/folio/internal/models"
)

// Service implements ImporterService
type Service struct {
	storage interfaces.StorageManager
	config  *common.Config
	logger  *common.Logger
}

// NewService creates a new importer service
func NewService(storage interfaces.StorageManager, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// ImportAll parses every configured source directory, validates the combined
// batch, and persists it. Source directories parse concurrently; nothing is
// shared until the per-source batches are merged.
func (s *Service) ImportAll(ctx context.Context) (*models.ImportReport, error) {
	report := &models.ImportReport{StartedAt: time.Now()}

	entities, err := parseReferenceDir(s.config.Importer.Entities, parseEntities)
	if err != nil {
		return nil, err
	}
	splits, err := parseReferenceDir(s.config.Importer.Splits, parseSplits)
	if err != nil {
		return nil, err
	}
	acquisitions, err := parseReferenceDir(s.config.Importer.Acquisitions, parseAcquisitions)
	if err != nil {
		return nil, err
	}

	batches, files, err := s.parseSources(s.config.Importer.Sources)
	if err != nil {
		return nil, err
	}
	report.FilesProcessed = files

	var trades []models.TradeRecord
	var dividends []models.DividendRecord
	for _, b := range batches {
		trades = append(trades, b.trades...)
		dividends = append(dividends, b.dividends...)
		report.SkippedRows += b.skipped
	}

	trades = cleanupTrades(trades)

	if err := s.checkSymbols(ctx, entities, trades, dividends, splits, acquisitions); err != nil {
		return nil, err
	}

	if report.Entities, err = s.storage.Events().SaveEntities(ctx, entities); err != nil {
		return nil, err
	}
	if report.Trades, err = s.storage.Events().SaveTrades(ctx, trades); err != nil {
		return nil, err
	}
	if report.Dividends, err = s.storage.Events().SaveDividends(ctx, dividends); err != nil {
		return nil, err
	}
	if report.Splits, err = s.storage.Events().SaveSplits(ctx, splits); err != nil {
		return nil, err
	}
	if report.Acquisitions, err = s.storage.Events().SaveAcquisitions(ctx, acquisitions); err != nil {
		return nil, err
	}

	report.FinishedAt = time.Now()
	s.logger.Info().
		Int("files", report.FilesProcessed).
		Int("trades", report.Trades).
		Int("dividends", report.Dividends).
		Int("skipped", report.SkippedRows).
		Msg("Import complete")
	return report, nil
}

// parseSources fans one goroutine out per source directory. Batches stay
// private to their goroutine until collected here.
func (s *Service) parseSources(sources []common.SourceConfig) ([]*batch, int, error) {
	type result struct {
		batch *batch
		files int
		err   error
	}

	var wg sync.WaitGroup
	results := make([]result, len(sources))

	for i, source := range sources {
		wg.Add(1)
		go func(i int, source common.SourceConfig) {
			defer wg.Done()
			b, files, err := s.parseSource(source)
			results[i] = result{batch: b, files: files, err: err}
		}(i, source)
	}
	wg.Wait()

	var batches []*batch
	files := 0
	for _, r := range results {
		if r.err != nil {
			return nil, 0, r.err
		}
		batches = append(batches, r.batch)
		files += r.files
	}
	return batches, files, nil
}

func (s *Service) parseSource(source common.SourceConfig) (*batch, int, error) {
	paths, err := listCSVFiles(source.Dir)
	if err != nil {
		return nil, 0, err
	}

	var normalize func(path, accountType string) (*batch, error)
	switch strings.ToLower(source.Brokerage) {
	case "schwab":
		normalize = normalizeSchwab
	case "tdameritrade":
		normalize = normalizeTDAmeritrade
	case "wallmine":
		normalize = normalizeWallmine
	default:
		return nil, 0, fmt.Errorf("unknown brokerage '%s' for dir %s", source.Brokerage, source.Dir)
	}

	merged := &batch{}
	for _, path := range paths {
		b, err := normalize(path, source.AccountType)
		if err != nil {
			return nil, 0, err
		}
		merged.trades = append(merged.trades, b.trades...)
		merged.dividends = append(merged.dividends, b.dividends...)
		merged.skipped += b.skipped
	}
	s.logger.Debug().
		Str("brokerage", source.Brokerage).
		Int("files", len(paths)).
		Int("trades", len(merged.trades)).
		Msg("Source directory parsed")
	return merged, len(paths), nil
}

// parseReferenceDir parses every CSV in a reference data directory (entities,
// splits, or acquisitions). An empty dir path means the data type is not used.
func parseReferenceDir[T any](dir string, parse func(string) ([]T, error)) ([]T, error) {
	if dir == "" {
		return nil, nil
	}
	paths, err := listCSVFiles(dir)
	if err != nil {
		return nil, err
	}
	var all []T
	for _, path := range paths {
		rows, err := parse(path)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

func listCSVFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source dir %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

// cleanupTrades applies one-off symbol fixes brokerages are known for.
func cleanupTrades(trades []models.TradeRecord) []models.TradeRecord {
	for i := range trades {
		// TD Ameritrade prints Brown-Forman class B as "BF B".
		if trades[i].Symbol == "BF B" {
			trades[i].Symbol = "BF.B"
		}
	}
	return trades
}

// checkSymbols enforces the referential invariant: every symbol in the batch
// must resolve to an entity, either imported alongside or already stored.
func (s *Service) checkSymbols(ctx context.Context, entities []models.Entity,
	trades []models.TradeRecord, dividends []models.DividendRecord,
	splits []models.SplitRecord, acquisitions []models.AcquisitionRecord) error {

	known := make(map[string]bool)
	stored, err := s.storage.Events().ListEntities(ctx)
	if err != nil {
		return err
	}
	for _, e := range stored {
		known[strings.ToUpper(e.Symbol)] = true
	}
	for _, e := range entities {
		known[strings.ToUpper(e.Symbol)] = true
	}

	check := func(symbol, source string) error {
		if !known[strings.ToUpper(symbol)] {
			return &models.UnknownSymbolError{Symbol: symbol, Source: source}
		}
		return nil
	}

	for _, t := range trades {
		if err := check(t.Symbol, "trades"); err != nil {
			return err
		}
	}
	for _, d := range dividends {
		if err := check(d.Symbol, "dividends"); err != nil {
			return err
		}
	}
	for _, sp := range splits {
		if err := check(sp.Symbol, "splits"); err != nil {
			return err
		}
	}
	for _, a := range acquisitions {
		if err := check(a.Symbol, "acquisitions"); err != nil {
			return err
		}
		if err := check(a.Acquirer, "acquisitions"); err != nil {
			return err
		}
	}
	return nil
}
