package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Cache stores opaque values with a TTL. Get returns (nil, false, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pinger is implemented by networked backends and reported by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// sweepInterval is the minimum time between full expiry sweeps on Set.
const sweepInterval = time.Minute

// InMemoryCache implements Cache using a map with TTL-based expiration.
// Expired entries are removed on access and by a periodic sweep on Set.
// Safe for concurrent use.
type InMemoryCache struct {
	mu        sync.Mutex
	data      map[string]cacheEntry
	now       func() time.Time
	lastSweep time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
}

// Get retrieves the value for key if present and not expired.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.data, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key for ttl.
func (c *InMemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= sweepInterval {
		c.sweepLocked(now)
	}
	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// sweepLocked drops every expired entry. Must be called with mu held.
func (c *InMemoryCache) sweepLocked(now time.Time) {
	for k, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, k)
		}
	}
	c.lastSweep = now
}

// GetJSON looks up key and decodes a hit into out.
func GetJSON(ctx context.Context, c Cache, key string, out interface{}) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}
