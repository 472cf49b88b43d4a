package events

import (
	"context"
	"sync"
	"time"
)

// Cache keeps the last dataset loaded from a Source. Searches read the
// cached slice; Refresh replaces it wholesale so readers never observe a
// partially loaded dataset.
type Cache struct {
	src Source

	mu       sync.RWMutex
	records  []Record
	loadedAt time.Time
	loaded   bool
}

// NewCache wraps src. Nothing is loaded until the first Load or Refresh.
func NewCache(src Source) *Cache {
	return &Cache{src: src}
}

// Load implements Source, loading from the wrapped source on first use.
func (c *Cache) Load(ctx context.Context) ([]Record, error) {
	c.mu.RLock()
	if c.loaded {
		records := c.records
		c.mu.RUnlock()
		return records, nil
	}
	c.mu.RUnlock()

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records, nil
}

// Refresh reloads the wrapped source. On failure the previous dataset is kept.
func (c *Cache) Refresh(ctx context.Context) error {
	records, err := c.src.Load(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.records = records
	c.loadedAt = time.Now()
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// LoadedAt returns the time of the last successful refresh and the number
// of cached records.
func (c *Cache) LoadedAt() (time.Time, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt, len(c.records)
}
