package dataset

import "sync"

// Cache holds the records of one bundled collection. It is keyed by the active
// selection: asking for a different key, or calling Invalidate, forces the
// next access to reload.
type Cache struct {
	mu      sync.RWMutex
	key     string
	records []Record
	loaded  bool
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// GetOrLoad returns the cached records for key, calling load at most once per
// key until the cache is invalidated. Failed loads are not cached.
func (c *Cache) GetOrLoad(key string, load func() ([]Record, error)) ([]Record, error) {
	c.mu.RLock()
	if c.loaded && c.key == key {
		records := c.records
		c.mu.RUnlock()
		return records, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded && c.key == key {
		return c.records, nil
	}

	records, err := load()
	if err != nil {
		return nil, err
	}
	c.key = key
	c.records = records
	c.loaded = true
	return records, nil
}

// Invalidate empties the slot.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.key = ""
	c.records = nil
	c.loaded = false
	c.mu.Unlock()
}

// Key reports the selection currently cached, or "" when empty.
func (c *Cache) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}
