// Package models defines the core data types for Folio
package models

import (
	"fmt"
	"time"
)

// EventKind identifies the corporate action or trade a ledger event records.
// The set is closed: the replay engine switches exhaustively over it, so adding
// a kind is a compile-time-visible change.
type EventKind int

const (
	KindBuy EventKind = iota
	KindSell
	KindDividend
	KindSplit
	KindAcquisitionTarget
	KindAcquisitionAcquirer
)

func (k EventKind) String() string {
	switch k {
	case KindBuy:
		return "buy"
	case KindSell:
		return "sell"
	case KindDividend:
		return "dividend"
	case KindSplit:
		return "split"
	case KindAcquisitionTarget:
		return "acquisition-target"
	case KindAcquisitionAcquirer:
		return "acquisition-acquirer"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// AffectsQuantity reports whether events of this kind change held share count.
// Dividends are recorded but leave the position untouched.
func (k EventKind) AffectsQuantity() bool {
	return k != KindDividend
}

// Event is one entry in the canonical portfolio event log. Events are built
// once by the event log builder and never mutated afterwards.
//
// Acquisitions always appear as a symmetric pair: a target-side event that
// closes the target's position and an acquirer-side event (Counterparty set to
// the target, Multiplier to the conversion ratio) that opens or extends the
// acquirer's.
type Event struct {
	Date         time.Time `json:"date"`
	Symbol       string    `json:"symbol"`
	Kind         EventKind `json:"kind"`
	Quantity     float64   `json:"quantity,omitempty"`
	UnitPrice    float64   `json:"unit_price,omitempty"`
	Dividend     float64   `json:"dividend,omitempty"`
	Multiplier   float64   `json:"multiplier,omitempty"`
	Counterparty string    `json:"counterparty,omitempty"`
	AccountType  string    `json:"account_type,omitempty"`
}

// TradeRecord is a normalized buy or sell sourced from a brokerage export.
type TradeRecord struct {
	Date          time.Time `json:"date"`
	Symbol        string    `json:"symbol"`
	Action        string    `json:"action"` // "buy" or "sell"
	NumShares     float64   `json:"num_shares"`
	PricePerShare float64   `json:"price_per_share"`
	TotalPrice    float64   `json:"total_price"`
	Brokerage     string    `json:"brokerage"`
	AccountType   string    `json:"account_type"`
}

// DividendRecord is a cash dividend payout.
type DividendRecord struct {
	Date        time.Time `json:"date"`
	Symbol      string    `json:"symbol"`
	Amount      float64   `json:"amount"`
	AccountType string    `json:"account_type"`
}

// SplitRecord is a stock split with its quantity multiplier
// (2 for a 2:1 split, 0.25 for a 1:4 reverse split).
type SplitRecord struct {
	RecordDate       time.Time `json:"record_date"`
	DistributionDate time.Time `json:"distribution_date"`
	Symbol           string    `json:"symbol"`
	Multiplier       float64   `json:"multiplier"`
}

// AcquisitionRecord captures one company acquiring another. ConversionRatio is
// the number of acquirer shares received per target share.
type AcquisitionRecord struct {
	Date            time.Time `json:"date"`
	Symbol          string    `json:"symbol"` // target
	Acquirer        string    `json:"acquirer"`
	ConversionRatio float64   `json:"conversion_ratio"`
}

// Entity describes an asset referenced by events, with the attributes used
// for dimension aggregation. Every event symbol must resolve to an entity
// before it is accepted at ingestion.
type Entity struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	AssetType   string `json:"asset_type"`
	Sector      string `json:"sector"`
	Geography   string `json:"geography"`
	AccountType string `json:"account_type"`
}

// Dimension is a cross-cutting grouping attribute for aggregation.
type Dimension string

const (
	DimensionSector      Dimension = "sector"
	DimensionAssetType   Dimension = "asset_type"
	DimensionAccountType Dimension = "account_type"
	DimensionGeography   Dimension = "geography"
)

// Value returns the entity's value for the dimension.
func (d Dimension) Value(e *Entity) string {
	switch d {
	case DimensionSector:
		return e.Sector
	case DimensionAssetType:
		return e.AssetType
	case DimensionAccountType:
		return e.AccountType
	case DimensionGeography:
		return e.Geography
	default:
		return ""
	}
}

// Dimensions lists every aggregation dimension.
func Dimensions() []Dimension {
	return []Dimension{DimensionSector, DimensionAssetType, DimensionAccountType, DimensionGeography}
}
