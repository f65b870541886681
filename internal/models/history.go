package models

import "time"

// Lot is a single purchase tranche tracked for FIFO cost basis. A lot is
// exclusively owned by one symbol's ledger state and never shared.
type Lot struct {
	AcquiredDate      time.Time `json:"acquired_date"`
	InitialQuantity   float64   `json:"initial_quantity"`
	RemainingQuantity float64   `json:"remaining_quantity"`
	UnitCost          float64   `json:"unit_cost"`
}

// Basis returns the cost basis still held in this lot.
func (l Lot) Basis() float64 {
	return l.RemainingQuantity * l.UnitCost
}

// DailySnapshot is the replay output for one event-affecting date: the final
// quantity and FIFO cost basis after all of that date's events were applied.
type DailySnapshot struct {
	Date      time.Time `json:"date"`
	Symbol    string    `json:"symbol"`
	Quantity  float64   `json:"quantity"`
	CostBasis float64   `json:"cost_basis"`
}

// ValuedSnapshot extends DailySnapshot with the settled closing price and the
// derived market value and unrealized percent return.
type ValuedSnapshot struct {
	DailySnapshot
	ClosingPrice  float64 `json:"closing_price"`
	Value         float64 `json:"value"`
	PercentReturn float64 `json:"percent_return"`
}

// PortfolioValueRow is the portfolio-level daily total across all assets.
type PortfolioValueRow struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// DimensionSummaryRow is the per-dimension daily average percent return.
type DimensionSummaryRow struct {
	Date             time.Time `json:"date"`
	DimensionValue   string    `json:"dimension_value"`
	AvgPercentReturn float64   `json:"avg_percent_return"`
}

// HypotheticalRow projects a fully exited position forward: the value the
// shares would have had on Date had they been kept past the exit.
type HypotheticalRow struct {
	Date         time.Time `json:"date"`
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	ClosingPrice float64   `json:"closing_price"`
	Value        float64   `json:"value"`
}

// AssetSummary is the current-position summary for one symbol, derived by
// replaying the full event log.
type AssetSummary struct {
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	Quantity          float64   `json:"quantity"`
	CostBasis         float64   `json:"cost_basis"`
	TotalDividend     float64   `json:"total_dividend"`
	FirstPurchaseDate time.Time `json:"first_purchase_date"`
	LastPurchaseDate  time.Time `json:"last_purchase_date"`
}

// PriceBar is one settled daily close for a symbol.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Close  float64   `json:"close"`
}

// PriceGap records a (date, symbol) pair dropped from valuation because the
// price feed had no quote. Gaps are reported, never fatal. Err carries the
// underlying cause (typically a *MissingPriceDataError) for callers that
// branch on it.
type PriceGap struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Reason string    `json:"reason"`
	Err    error     `json:"-"`
}

// SymbolFailure records a replay aborted for one symbol. Other symbols
// proceed; the batch report carries the failure.
type SymbolFailure struct {
	Symbol string `json:"symbol"`
	Err    error  `json:"-"`
	Reason string `json:"reason"`
}

// SyncReport summarizes one history refresh run. A batch never drops a symbol
// silently: every skipped symbol or missing price date lands here.
type SyncReport struct {
	RunID       string          `json:"run_id"`
	Series      string          `json:"series"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	RowsWritten int             `json:"rows_written"`
	UpToDate    bool            `json:"up_to_date"`
	Failures    []SymbolFailure `json:"failures,omitempty"`
	PriceGaps   []PriceGap      `json:"price_gaps,omitempty"`
}
