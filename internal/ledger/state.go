package ledger

import (
	"time"

	"github.com/kineticrick/folio/internal/models"
)

// State is one symbol's running ledger position: total quantity, FIFO cost
// basis, and the lot list that backs both. Lots are kept oldest-first, and
// between event applications:
//
//	Quantity  == sum of lot remaining quantities
//	CostBasis == sum of lot remaining quantity * unit cost
//	Quantity  >= 0
//
// A State is exclusively owned by its replay; it is never shared or aliased.
type State struct {
	Symbol    string
	Quantity  float64
	CostBasis float64
	Lots      []models.Lot
}

// buy appends a new lot and grows quantity and cost basis.
func (s *State) buy(date time.Time, qty, unitPrice float64) {
	s.Lots = append(s.Lots, models.Lot{
		AcquiredDate:      date,
		InitialQuantity:   qty,
		RemainingQuantity: qty,
		UnitCost:          unitPrice,
	})
	s.Quantity += qty
	s.CostBasis += qty * unitPrice
}

// sell depletes lots oldest-first. When the sold quantity exceeds the total
// held, it returns NegativeQuantityError and leaves the state untouched: the
// depletion runs against a working copy and commits only on success.
func (s *State) sell(date time.Time, qty float64) error {
	if qty > s.Quantity {
		return &models.NegativeQuantityError{
			Symbol:    s.Symbol,
			Date:      date,
			Requested: qty,
			Held:      s.Quantity,
		}
	}

	remaining := qty
	lots := make([]models.Lot, 0, len(s.Lots))
	depletedCost := 0.0
	for _, lot := range s.Lots {
		if remaining <= 0 {
			lots = append(lots, lot)
			continue
		}
		if lot.RemainingQuantity > remaining {
			// Partial depletion of this lot.
			depletedCost += remaining * lot.UnitCost
			lot.RemainingQuantity -= remaining
			remaining = 0
			lots = append(lots, lot)
		} else {
			// Lot fully consumed.
			depletedCost += lot.Basis()
			remaining -= lot.RemainingQuantity
		}
	}

	s.Lots = lots
	s.Quantity -= qty
	s.CostBasis -= depletedCost
	return nil
}

// split scales every lot by the multiplier. Cost basis is invariant under a
// split: quantities scale up, unit costs scale down.
func (s *State) split(multiplier float64) {
	for i := range s.Lots {
		s.Lots[i].RemainingQuantity *= multiplier
		s.Lots[i].InitialQuantity *= multiplier
		s.Lots[i].UnitCost /= multiplier
	}
	s.Quantity *= multiplier
}

// clear zeroes the position. Applied when the symbol is acquired.
func (s *State) clear() {
	s.Lots = s.Lots[:0]
	s.Quantity = 0
	s.CostBasis = 0
}

// absorb adds converted shares from an acquisition target as a single lot
// carrying the target's cost basis verbatim (not scaled by the ratio).
func (s *State) absorb(date time.Time, qty, costBasis float64) {
	if qty <= 0 {
		// A sub-share conversion floors to zero; there is nothing to hold
		// the carried basis, so the event is a no-op.
		return
	}
	s.Lots = append(s.Lots, models.Lot{
		AcquiredDate:      date,
		InitialQuantity:   qty,
		RemainingQuantity: qty,
		UnitCost:          costBasis / qty,
	})
	s.Quantity += qty
	s.CostBasis += costBasis
}
