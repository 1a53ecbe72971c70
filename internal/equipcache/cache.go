// Package equipcache caches per-entity equipment snapshots between
// resolutions so that derived views never rebuild the object graph per call.
//
// Entries are bounded two ways, whichever bound is hit first: a configurable
// entry count (oldest-inserted entries are evicted on overflow) and a fixed
// time-to-live independent of access. The engine does not auto-detect
// external mutation — hosts must call [Cache.Invalidate] (or the engine's
// InvalidateEntity) whenever an entity's equipment is known to have changed;
// the recovery subsystem does the same after writing repaired data.
//
// Concurrent fetches for the same entity are collapsed into a single gateway
// round-trip via singleflight. All methods are safe for concurrent use.
package equipcache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/scopeql/internal/clothing"
)

const (
	// DefaultMaxEntries bounds the cache size when no option overrides it.
	DefaultMaxEntries = 1000

	// DefaultTTL is the entry lifetime when no option overrides it.
	DefaultTTL = 30 * time.Second
)

// FetchFunc loads a fresh snapshot for an entity on cache miss; typically
// [clothing.Fetch] bound to a gateway.
type FetchFunc func(ctx context.Context, entityID string) (*clothing.Snapshot, error)

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// Option is a functional option for configuring a [Cache].
type Option func(*Cache)

// WithMaxEntries sets the entry-count bound. Default: [DefaultMaxEntries].
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithTTL sets the entry lifetime. Default: [DefaultTTL].
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock overrides the time source. Tests use this to drive expiry
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithObserver registers a callback invoked after every lookup with whether
// it was a hit. The engine uses this to feed cache counters into its metrics
// instruments. The callback must not call back into the cache.
func WithObserver(observe func(hit bool)) Option {
	return func(c *Cache) {
		c.observe = observe
	}
}

// Cache is the bounded, expiring snapshot cache. Construct with [New].
type Cache struct {
	fetch      FetchFunc
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	observe    func(hit bool)

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*list.Element // entity ID → element in order
	order   *list.List               // insertion order, oldest at front
	hits    int64
	misses  int64
}

// entry is the cached value plus its expiry deadline.
type entry struct {
	key       string
	snapshot  *clothing.Snapshot
	expiresAt time.Time
}

// New creates a [Cache] that loads misses through fetch.
func New(fetch FetchFunc, opts ...Option) *Cache {
	c := &Cache{
		fetch:      fetch,
		maxEntries: DefaultMaxEntries,
		ttl:        DefaultTTL,
		now:        time.Now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetOrFetch returns the cached snapshot for the entity, fetching and caching
// it on miss or expiry. Fetch errors are returned as-is and nothing is
// cached, so a later call retries.
func (c *Cache) GetOrFetch(ctx context.Context, entityID string) (*clothing.Snapshot, error) {
	if snap, ok := c.lookup(entityID); ok {
		return snap, nil
	}

	v, err, _ := c.group.Do(entityID, func() (any, error) {
		// Re-check: another goroutine may have populated the entry while
		// this one waited on the flight group. The probe bypasses the
		// counters — the miss was already recorded.
		if snap, ok := c.peek(entityID); ok {
			return snap, nil
		}
		snap, err := c.fetch(ctx, entityID)
		if err != nil {
			return nil, err
		}
		c.insert(entityID, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*clothing.Snapshot), nil
}

// Invalidate drops the entity's cache entry. The next GetOrFetch performs a
// fresh gateway fetch.
func (c *Cache) Invalidate(entityID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(entityID)
}

// Clear drops every entry. Stats counters are preserved.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns a point-in-time snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Size: len(c.entries)}
}

// lookup returns a live entry, counting a hit, or counts a miss. Expired
// entries are removed on sight.
func (c *Cache) lookup(entityID string) (*clothing.Snapshot, bool) {
	snap, hit := c.lookupLocked(entityID)
	if c.observe != nil {
		c.observe(hit)
	}
	return snap, hit
}

func (c *Cache) lookupLocked(entityID string) (*clothing.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[entityID]
	if ok {
		e := el.Value.(*entry)
		if c.now().Before(e.expiresAt) {
			c.hits++
			return e.snapshot, true
		}
		c.remove(entityID)
	}
	c.misses++
	return nil, false
}

// insert stores a fresh entry, evicting oldest-inserted entries over the
// size bound.
func (c *Cache) insert(entityID string, snap *clothing.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remove(entityID)
	el := c.order.PushBack(&entry{
		key:       entityID,
		snapshot:  snap,
		expiresAt: c.now().Add(c.ttl),
	})
	c.entries[entityID] = el

	for len(c.entries) > c.maxEntries {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*entry).key)
	}
}

// peek returns a live entry without touching the hit/miss counters.
func (c *Cache) peek(entityID string) (*clothing.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[entityID]; ok {
		e := el.Value.(*entry)
		if c.now().Before(e.expiresAt) {
			return e.snapshot, true
		}
	}
	return nil, false
}

// remove unlinks one entry. Caller holds c.mu.
func (c *Cache) remove(entityID string) {
	if el, ok := c.entries[entityID]; ok {
		c.order.Remove(el)
		delete(c.entries, entityID)
	}
}
