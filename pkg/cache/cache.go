package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Key identifies one cached read result.
type Key struct {
	// Repo is the owner/name identifier.
	Repo string

	// Path is the file path within the repository.
	Path string

	// Ref is the branch or commit the read was resolved against.
	Ref string
}

// Payload is the cached value for a read.
type Payload struct {
	// Content is the file content. Nil when Missing is true.
	Content []byte

	// SHA is the version tag of the content.
	SHA string

	// Missing records a successful read of a nonexistent path, so offline
	// mode can answer "not found" from cache too.
	Missing bool
}

// clone deep-copies the payload so later caller mutation cannot reach
// cache state.
func (p Payload) clone() Payload {
	if p.Content == nil {
		return p
	}
	content := make([]byte, len(p.Content))
	copy(content, p.Content)
	p.Content = content
	return p
}

type entry struct {
	payload  Payload
	storedAt time.Time
}

// Config configures the cache.
type Config struct {
	// TTL is how long an entry stays readable. Default 5 minutes.
	TTL time.Duration

	// MaxEntries bounds the entry count. Default 50.
	MaxEntries int

	// Backend optionally mirrors entries to durable storage.
	Backend Backend
}

// Cache is the bounded TTL store. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[Key]*entry
	order      []Key // insertion order, oldest first
	ttl        time.Duration
	maxEntries int
	backend    Backend

	// now is replaceable for tests
	now func() time.Time
}

// New creates a cache. If a backend is configured, surviving entries are
// loaded from it; load failures are logged and start the cache empty.
func New(config Config) *Cache {
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 50
	}

	c := &Cache{
		entries:    make(map[Key]*entry),
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
		backend:    config.Backend,
		now:        time.Now,
	}

	if c.backend != nil {
		c.rewarm()
	}

	return c
}

// rewarm loads unexpired entries from the backend.
func (c *Cache) rewarm() {
	stored, err := c.backend.Load(context.Background())
	if err != nil {
		slog.Warn("cache rewarm failed, starting empty", "error", err)
		return
	}

	now := c.now()
	loaded := 0
	for _, s := range stored {
		if now.Sub(s.StoredAt) > c.ttl {
			continue
		}
		if len(c.order) >= c.maxEntries {
			break
		}
		c.entries[s.Key] = &entry{payload: s.Payload, storedAt: s.StoredAt}
		c.order = append(c.order, s.Key)
		loaded++
	}

	if loaded > 0 {
		slog.Info("cache rewarmed from backend", "entries", loaded)
	}
}

// Get returns the payload for key, or ok=false on miss. Expired entries
// read as misses and are removed.
func (c *Cache) Get(key Key) (Payload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		missesTotal.Inc()
		return Payload{}, false
	}

	if c.now().Sub(e.storedAt) > c.ttl {
		c.removeLocked(key)
		c.mirrorDelete([]Key{key})
		missesTotal.Inc()
		return Payload{}, false
	}

	hitsTotal.Inc()
	return e.payload.clone(), true
}

// Put stores a payload under key. The payload is deep-copied. When the
// insertion would exceed capacity, the 20% oldest-stored entries are
// evicted first.
func (c *Cache) Put(key Key, payload Payload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if _, exists := c.entries[key]; exists {
		// Refresh in place; move to the back of the insertion order.
		c.removeLocked(key)
	} else if len(c.order) >= c.maxEntries {
		c.evictOldestLocked()
	}

	c.entries[key] = &entry{payload: payload.clone(), storedAt: now}
	c.order = append(c.order, key)
	entriesGauge.Set(float64(len(c.order)))

	if c.backend != nil {
		if err := c.backend.Save(context.Background(), key, payload, now); err != nil {
			slog.Warn("cache mirror save failed", "path", key.Path, "error", err)
		}
	}
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Sweep removes all expired entries and returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var dropped []Key
	for key, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			dropped = append(dropped, key)
		}
	}
	for _, key := range dropped {
		c.removeLocked(key)
	}
	c.mirrorDelete(dropped)
	entriesGauge.Set(float64(len(c.order)))

	return len(dropped)
}

// Close releases the backend, if any.
func (c *Cache) Close() error {
	if c.backend != nil {
		return c.backend.Close()
	}
	return nil
}

// evictOldestLocked drops the 20% oldest-stored entries.
// Caller must hold the lock.
func (c *Cache) evictOldestLocked() {
	count := c.maxEntries / 5
	if count < 1 {
		count = 1
	}
	if count > len(c.order) {
		count = len(c.order)
	}

	evicted := make([]Key, count)
	copy(evicted, c.order[:count])
	for _, key := range evicted {
		delete(c.entries, key)
	}
	c.order = append(c.order[:0], c.order[count:]...)
	evictionsTotal.Add(float64(count))

	c.mirrorDelete(evicted)
}

// removeLocked drops a single key from the map and the order slice.
// Caller must hold the lock.
func (c *Cache) removeLocked(key Key) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// mirrorDelete best-effort removes keys from the backend.
func (c *Cache) mirrorDelete(keys []Key) {
	if c.backend == nil || len(keys) == 0 {
		return
	}
	if err := c.backend.Delete(context.Background(), keys); err != nil {
		slog.Warn("cache mirror delete failed", "keys", len(keys), "error", err)
	}
}
