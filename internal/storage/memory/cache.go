package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pumpcards/internal/storage"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is an in-memory implementation of storage.Cache.
// Expired entries are evicted lazily on access.
type Cache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
	now  func() time.Time
}

// NewCache creates a new in-memory cache using the wall clock.
func NewCache() *Cache {
	return NewCacheWithClock(time.Now)
}

// NewCacheWithClock creates a new in-memory cache using the given clock.
func NewCacheWithClock(now func() time.Time) *Cache {
	return &Cache{
		data: make(map[string]cacheEntry),
		now:  now,
	}
}

// Get retrieves a value. Returns ErrNotFound if absent or expired.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.data, key)
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Put inserts or replaces a value that expires after ttl.
func (c *Cache) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" || ttl <= 0 {
		return storage.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	c.data[key] = cacheEntry{value: v, expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// ListByPrefix returns live keys starting with prefix, sorted ASC.
func (c *Cache) ListByPrefix(_ context.Context, prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var keys []string
	for k, e := range c.data {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !now.Before(e.expiresAt) {
			delete(c.data, k)
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Sweep deletes expired entries and returns the count.
func (c *Cache) Sweep(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var n int64
	for k, e := range c.data {
		if !now.Before(e.expiresAt) {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

// Verify interface compliance at compile time.
var _ storage.Cache = (*Cache)(nil)
