package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cherrryana/temperature-monitor/internal/models"
)

// Cache stores live readings keyed by city so scheduled monitor runs and
// on-demand live checks within the TTL do not re-hit the weather API.
type Cache interface {
	Get(ctx context.Context, city string) (models.LiveReading, bool, error)
	Set(ctx context.Context, city string, reading models.LiveReading, ttl time.Duration) error
}

// InMemoryCache implements Cache with a map and TTL-based expiration. Expired
// entries are removed on access. Safe for concurrent use; the concurrent fetch
// strategy reads and writes it from per-city goroutines.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	reading   models.LiveReading
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get returns the cached reading for the city if present and not expired.
func (c *InMemoryCache) Get(ctx context.Context, city string) (models.LiveReading, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[city]
	if !ok {
		return models.LiveReading{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.data, city)
		return models.LiveReading{}, false, nil
	}
	return entry.reading, true, nil
}

// Set stores a reading with the given TTL.
func (c *InMemoryCache) Set(ctx context.Context, city string, reading models.LiveReading, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[city] = cacheEntry{
		reading:   reading,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
