// Package common provides shared utilities for Folio
package common

import "time"

// Freshness TTLs for cached data components
const (
	FreshnessHistoricalPrices = 12 * time.Hour // settled closes don't change intraday
	FreshnessCurrentPrice     = 5 * time.Minute
	FreshnessHistoryRead      = 1 * time.Hour // evicted early on every sync write
	FreshnessEntities         = 24 * time.Hour
)

// Cache tags used for grouped invalidation.
const (
	CacheTagHistory = "history"
	CacheTagPrices  = "prices"
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
