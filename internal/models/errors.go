package models

import (
	"fmt"
	"strings"
	"time"
)

// MalformedEventError reports a raw record with a missing or uncoercible
// field. Validation errors abort the entire import batch before any replay
// begins: a partially validated log would silently corrupt downstream
// accounting.
type MalformedEventError struct {
	Source string // record kind or file the value came from
	Field  string
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event: %s field %q: %s", e.Source, e.Field, e.Reason)
}

// UnknownSymbolError reports an event referencing a symbol absent from the
// entities table. Checked at ingestion, not inside the replay engine.
type UnknownSymbolError struct {
	Symbol string
	Source string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q referenced by %s", e.Symbol, e.Source)
}

// NegativeQuantityError reports a sell or conversion that would deplete more
// shares than are held. The ledger state is left unmodified.
type NegativeQuantityError struct {
	Symbol    string
	Date      time.Time
	Requested float64
	Held      float64
}

func (e *NegativeQuantityError) Error() string {
	return fmt.Sprintf("negative quantity: %s on %s: sell of %.4f exceeds %.4f held",
		e.Symbol, e.Date.Format("2006-01-02"), e.Requested, e.Held)
}

// CyclicAcquisitionError reports an acquisition chain that loops back on
// itself (A acquires B which acquires A).
type CyclicAcquisitionError struct {
	Chain []string
}

func (e *CyclicAcquisitionError) Error() string {
	return fmt.Sprintf("cyclic acquisition chain: %s", strings.Join(e.Chain, " -> "))
}

// MissingPriceDataError reports a quote the price feed could not serve for a
// required date. The affected row is dropped with a collected warning.
type MissingPriceDataError struct {
	Symbol string
	Date   time.Time
}

func (e *MissingPriceDataError) Error() string {
	return fmt.Sprintf("missing price data for %s on %s", e.Symbol, e.Date.Format("2006-01-02"))
}
