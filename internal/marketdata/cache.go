package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Cache stores current prices for a limited time.
type Cache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool)
	Put(ctx context.Context, key string, price decimal.Decimal, ttl time.Duration)
	Clear(ctx context.Context) error
}

// CacheKey is the cache key of asset's price in currency.
func CacheKey(assetID, currency string) string {
	return assetID + ":" + currency
}

type memoryEntry struct {
	price     decimal.Decimal
	expiresAt time.Time
}

// MemoryCache is an in-process Cache. Expired entries are dropped on read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns the cached price for key if it has not expired.
func (c *MemoryCache) Get(_ context.Context, key string) (decimal.Decimal, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return decimal.Zero, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return decimal.Zero, false
	}
	return entry.price, true
}

// Put stores price under key until ttl elapses.
func (c *MemoryCache) Put(_ context.Context, key string, price decimal.Decimal, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = memoryEntry{price: price, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
