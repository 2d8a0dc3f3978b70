package dashboard

import (
	"sync"
	"time"

	"taskdash/internal/service"
)

// Key identifies one materialized task page.
type Key struct {
	Page   int
	Search string
}

// KeyFor derives the cache key of a view. It is a pure function of its inputs.
func KeyFor(page int, debouncedSearch string) Key {
	return Key{Page: page, Search: debouncedSearch}
}

type cacheEntry struct {
	page      service.TaskPage
	fetchedAt time.Time
	stale     bool
	epoch     uint64 // epoch the page was requested at
}

// Cache memoizes task pages by Key. An entry is fresh for staleTime after it
// was stored unless it has been invalidated.
type Cache struct {
	mu        sync.Mutex
	entries   map[Key]cacheEntry
	epoch     uint64
	staleTime time.Duration
	now       func() time.Time
}

// NewCache creates an empty cache.
func NewCache(staleTime time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries:   make(map[Key]cacheEntry),
		staleTime: staleTime,
		now:       now,
	}
}

// Get returns the cached page for key and whether it is still fresh.
// A stale entry is still returned so it can be shown while refetching.
func (c *Cache) Get(key Key) (page service.TaskPage, fresh, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return service.TaskPage{}, false, false
	}
	fresh = !e.stale && c.now().Sub(e.fetchedAt) < c.staleTime
	return e.page, fresh, true
}

// Put stores page under key with a fresh timestamp.
func (c *Cache) Put(key Key, page service.TaskPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{page: page, fetchedAt: c.now(), epoch: c.epoch}
}

// Epoch returns the invalidation generation. It changes on every InvalidateAll.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// PutAt stores a page fetched while the cache was at epoch. If the cache has
// been invalidated since, the page is stored already stale so that the next
// read refetches it, and it never replaces a page requested at a later epoch.
// Reports whether the entry was stored fresh.
func (c *Cache) PutAt(key Key, page service.TaskPage, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch == c.epoch {
		c.entries[key] = cacheEntry{page: page, fetchedAt: c.now(), epoch: epoch}
		return true
	}
	if e, ok := c.entries[key]; ok && e.epoch > epoch {
		return false
	}
	c.entries[key] = cacheEntry{page: page, fetchedAt: c.now(), stale: true, epoch: epoch}
	return false
}

// Invalidate marks the entry for key stale.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
		c.entries[key] = e
	}
}

// InvalidateAll marks every entry stale. Invalidating twice is a no-op.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	for k, e := range c.entries {
		e.stale = true
		c.entries[k] = e
	}
}

// Len returns the number of entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
