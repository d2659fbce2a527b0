package logfile

import (
	"context"
	"sync"

	"github.com/couchcryptid/vessel-energy-etl/internal/observability"
	"github.com/couchcryptid/vessel-energy-etl/internal/selection"
	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

// CachedLoader wraps a Loader with an in-memory LRU cache keyed by file path.
// Reports run once for the whole voyage and once per route, so the same file
// is requested many times per run.
type CachedLoader struct {
	inner   Loader
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedLoader creates a cache decorator around a loader.
func NewCachedLoader(inner Loader, maxEntries int, metrics *observability.Metrics) *CachedLoader {
	return &CachedLoader{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Load returns a copy of the cached series, so callers may modify it freely.
func (c *CachedLoader) Load(ctx context.Context, sig selection.Signal) (*series.TimeSeries, error) {
	key := sig.Path + "|" + sig.Label
	if s, ok := c.cache.get(key); ok {
		c.metrics.SeriesCache.WithLabelValues("hit").Inc()
		return s.Clone(), nil
	}
	c.metrics.SeriesCache.WithLabelValues("miss").Inc()

	s, err := c.inner.Load(ctx, sig)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, s)
	return s.Clone(), nil
}

// lruCache is a simple thread-safe LRU cache of loaded series.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *series.TimeSeries
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*series.TimeSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *series.TimeSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
