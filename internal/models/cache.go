package models

import "time"

// CacheEntry records when a symbol's bar history was last refreshed from the
// provider. At most one entry exists per symbol.
type CacheEntry struct {
	Symbol      string    `json:"symbol"`
	LastUpdated time.Time `json:"lastUpdated"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Age returns how far behind the entry is relative to now, by calendar day.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return Day(now).Sub(Day(e.LastUpdated))
}
