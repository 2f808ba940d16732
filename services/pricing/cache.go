package pricing

import (
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL keeps quotes fresh enough for monitoring cycles while
// absorbing repeated lookups for the same symbol within one cycle.
const DefaultCacheTTL = 30 * time.Second

type cacheEntry struct {
	quote     *Quote
	expiresAt time.Time
}

// QuoteCache is a TTL cache for quotes, keyed by symbol and asset type.
type QuoteCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	hits    int64
	misses  int64
}

func NewQuoteCache(ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &QuoteCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(symbol, assetType string) string {
	return strings.ToUpper(symbol) + ":" + assetType
}

func (c *QuoteCache) Get(symbol, assetType string) (*Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(symbol, assetType)
	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		// Lazy expiry keeps the size counter honest
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.quote, true
}

func (c *QuoteCache) Set(symbol, assetType string, quote *Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(symbol, assetType)] = cacheEntry{
		quote:     quote,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Invalidate drops one symbol, or the whole cache when symbol is empty.
func (c *QuoteCache) Invalidate(symbol, assetType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if symbol == "" {
		c.entries = make(map[string]cacheEntry)
		return
	}
	delete(c.entries, cacheKey(symbol, assetType))
}

// Stats reports hit and miss counts since startup.
func (c *QuoteCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.entries)
}
