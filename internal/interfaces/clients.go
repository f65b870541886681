// Package interfaces defines service contracts for Folio
package interfaces

import (
	"context"
	"time"

	"github.com/kineticrick/folio/internal/models"
)

// EODHDClient provides access to the EODHD API
type EODHDClient interface {
	// GetEOD retrieves end-of-day price bars for one symbol, oldest first.
	GetEOD(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error)

	// GetRealTime retrieves the live price for one symbol.
	GetRealTime(ctx context.Context, symbol string) (float64, error)
}

// PriceFeed is the batch-oriented price collaborator the valuation pipeline
// consumes. Implementations must tolerate delisted or blacklisted symbols by
// excluding them (with a reported gap) rather than failing the whole batch.
type PriceFeed interface {
	// GetHistoricalPrices returns per-(date, symbol) closing prices over the
	// range, optionally forward-filling non-trading days from the previous
	// close.
	GetHistoricalPrices(ctx context.Context, symbols []string, start, end time.Time, forwardFill bool) ([]models.PriceBar, []models.PriceGap, error)

	// GetCurrentPrice returns live per-symbol prices.
	GetCurrentPrice(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Cache is a TTL cache with tag-based grouped eviction, owned by the sync
// controllers. Writers evict a tag after persisting new rows so later reads
// never serve data staler than the store.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration, tags ...string)
	EvictTag(tag string)
}
