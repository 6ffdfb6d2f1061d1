package engine

import "sync"

// ModelCache memoizes expensive model-loading work across pipeline runs
// within one process. It is owned by whoever constructs the engines and
// passed down explicitly; there is no process-wide instance.
//
// Loads are single-flight per key: concurrent callers for the same key
// share one load, and at most one load for a key runs at a time. A failed
// load is not cached, so a later caller retries.
type ModelCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	once  sync.Once
	value interface{}
	err   error
}

// NewModelCache creates an empty ModelCache.
func NewModelCache() *ModelCache {
	return &ModelCache{entries: make(map[string]*cacheEntry)}
}

// Load returns the cached value for key, invoking load at most once per key
// across concurrent callers.
func (c *ModelCache) Load(key string, load func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &cacheEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.value, entry.err = load()
	})

	if entry.err != nil {
		// Drop the failed entry so the next caller can retry the load.
		c.mu.Lock()
		if c.entries[key] == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, entry.err
	}

	return entry.value, nil
}

// Len returns the number of successfully cached entries plus loads in
// flight.
func (c *ModelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
