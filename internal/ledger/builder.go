// Package ledger reconstructs per-asset holdings from the portfolio event log.
// The builder merges heterogeneous raw records into one deterministic
// chronology; the replay engine folds that chronology into FIFO lot state.
package ledger

import (
	"sort"
	"strings"

	"github.com/kineticrick/folio/internal/models"
)

// RawRecords carries the per-kind inputs for one event log build.
type RawRecords struct {
	Trades       []models.TradeRecord
	Dividends    []models.DividendRecord
	Splits       []models.SplitRecord
	Acquisitions []models.AcquisitionRecord
}

// BuildEventLog normalizes every raw record into the Event shape and merges
// them into a single chronologically sorted log.
//
// Each acquisition record expands into a symmetric pair — a target-side event
// and an acquirer-side event carrying the conversion ratio as its multiplier —
// so either party's replay can be driven purely by its own event stream. The
// expansion happens before any symbol filtering: querying only the acquirer
// must still see the conversion event.
//
// Sort order is (Date, Multiplier) for the full log, which gives same-day
// corporate actions a stable application order, and (Symbol, Date) when a
// symbol filter is supplied, where cross-symbol interleaving is irrelevant.
func BuildEventLog(raw RawRecords, symbols []string) ([]models.Event, error) {
	events := make([]models.Event, 0,
		len(raw.Trades)+len(raw.Dividends)+len(raw.Splits)+2*len(raw.Acquisitions))

	for _, t := range raw.Trades {
		ev, err := tradeEvent(t)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	for _, d := range raw.Dividends {
		if d.Date.IsZero() {
			return nil, &models.MalformedEventError{Source: "dividend", Field: "date", Reason: "missing"}
		}
		if d.Symbol == "" {
			return nil, &models.MalformedEventError{Source: "dividend", Field: "symbol", Reason: "missing"}
		}
		events = append(events, models.Event{
			Date:        d.Date,
			Symbol:      d.Symbol,
			Kind:        models.KindDividend,
			Dividend:    d.Amount,
			AccountType: d.AccountType,
		})
	}

	for _, s := range raw.Splits {
		if s.DistributionDate.IsZero() {
			return nil, &models.MalformedEventError{Source: "split", Field: "distribution_date", Reason: "missing"}
		}
		if s.Symbol == "" {
			return nil, &models.MalformedEventError{Source: "split", Field: "symbol", Reason: "missing"}
		}
		if s.Multiplier <= 0 {
			return nil, &models.MalformedEventError{Source: "split", Field: "multiplier", Reason: "must be positive"}
		}
		events = append(events, models.Event{
			Date:       s.DistributionDate,
			Symbol:     s.Symbol,
			Kind:       models.KindSplit,
			Multiplier: s.Multiplier,
		})
	}

	for _, a := range raw.Acquisitions {
		if a.Date.IsZero() {
			return nil, &models.MalformedEventError{Source: "acquisition", Field: "date", Reason: "missing"}
		}
		if a.Symbol == "" || a.Acquirer == "" {
			return nil, &models.MalformedEventError{Source: "acquisition", Field: "symbol/acquirer", Reason: "missing"}
		}
		if a.ConversionRatio <= 0 {
			return nil, &models.MalformedEventError{Source: "acquisition", Field: "conversion_ratio", Reason: "must be positive"}
		}
		// Target side: position closes.
		events = append(events, models.Event{
			Date:         a.Date,
			Symbol:       a.Symbol,
			Kind:         models.KindAcquisitionTarget,
			Multiplier:   a.ConversionRatio,
			Counterparty: a.Acquirer,
		})
		// Acquirer side: converted shares arrive.
		events = append(events, models.Event{
			Date:         a.Date,
			Symbol:       a.Acquirer,
			Kind:         models.KindAcquisitionAcquirer,
			Multiplier:   a.ConversionRatio,
			Counterparty: a.Symbol,
		})
	}

	filtered := len(symbols) > 0
	if filtered {
		want := make(map[string]bool, len(symbols))
		for _, s := range symbols {
			want[strings.ToUpper(s)] = true
		}
		kept := events[:0]
		for _, ev := range events {
			if want[strings.ToUpper(ev.Symbol)] {
				kept = append(kept, ev)
			}
		}
		events = kept
	}

	if filtered {
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].Symbol != events[j].Symbol {
				return events[i].Symbol < events[j].Symbol
			}
			return events[i].Date.Before(events[j].Date)
		})
	} else {
		sort.SliceStable(events, func(i, j int) bool {
			if !events[i].Date.Equal(events[j].Date) {
				return events[i].Date.Before(events[j].Date)
			}
			return events[i].Multiplier < events[j].Multiplier
		})
	}

	return events, nil
}

// BySymbol splits an event log into per-symbol streams, preserving order.
func BySymbol(events []models.Event) map[string][]models.Event {
	out := make(map[string][]models.Event)
	for _, ev := range events {
		out[ev.Symbol] = append(out[ev.Symbol], ev)
	}
	return out
}

func tradeEvent(t models.TradeRecord) (models.Event, error) {
	if t.Date.IsZero() {
		return models.Event{}, &models.MalformedEventError{Source: "trade", Field: "date", Reason: "missing"}
	}
	if t.Symbol == "" {
		return models.Event{}, &models.MalformedEventError{Source: "trade", Field: "symbol", Reason: "missing"}
	}
	if t.NumShares <= 0 {
		return models.Event{}, &models.MalformedEventError{Source: "trade", Field: "num_shares", Reason: "must be positive"}
	}

	var kind models.EventKind
	switch strings.ToLower(t.Action) {
	case "buy":
		kind = models.KindBuy
	case "sell":
		kind = models.KindSell
	default:
		return models.Event{}, &models.MalformedEventError{Source: "trade", Field: "action", Reason: "must be buy or sell"}
	}

	return models.Event{
		Date:        t.Date,
		Symbol:      t.Symbol,
		Kind:        kind,
		Quantity:    t.NumShares,
		UnitPrice:   t.PricePerShare,
		AccountType: t.AccountType,
	}, nil
}
