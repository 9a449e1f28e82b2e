// internal/currency/cache.go
package currency

import (
	"sync"
	"time"

	"storefront-wallet/internal/domain"
)

type cacheEntry struct {
	rates     domain.RateTable
	fetchedAt time.Time
}

// rateCache is a process-wide TTL cache of rate tables keyed by base
// currency. The clock is injected so tests can control expiry.
type rateCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

func newRateCache(ttl time.Duration, now func() time.Time) *rateCache {
	if now == nil {
		now = time.Now
	}
	return &rateCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// get returns the cached table for base if it was stored within the TTL.
func (c *rateCache) get(base string) (domain.RateTable, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[base]
	if !ok || c.now().Sub(entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.rates, true
}

func (c *rateCache) set(base string, rates domain.RateTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[base] = cacheEntry{rates: rates, fetchedAt: c.now()}
}
