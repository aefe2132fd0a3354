package structure

import (
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
)

// ShapeCache memoizes walked and filtered key lists per (shape, include set).
// Entries are never evicted; the number of distinct shapes in a feed is small.
//
// Returned slices are shared between callers and must not be modified.
type ShapeCache struct {
	mu      sync.RWMutex
	entries map[uint64][]*cacheEntry
	shapes  map[Shape]struct{}

	hits     atomic.Uint64
	misses   atomic.Uint64
	observer func(hit bool)
}

type cacheEntry struct {
	shape   Shape
	include string
	keys    []Key
}

// CacheStats is a snapshot of cache effectiveness.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
	Shapes  int    `json:"shapes"`
}

// CacheOption configures a ShapeCache.
type CacheOption func(*ShapeCache)

// WithObserver registers fn to be told about every lookup outcome.
func WithObserver(fn func(hit bool)) CacheOption {
	return func(c *ShapeCache) { c.observer = fn }
}

// NewShapeCache returns an empty cache.
func NewShapeCache(opts ...CacheOption) *ShapeCache {
	c := &ShapeCache{
		entries: make(map[uint64][]*cacheEntry),
		shapes:  make(map[Shape]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the leveled keys of h restricted to include, walking the
// message only the first time its shape is seen with this include set.
func (c *ShapeCache) Get(h *bufr.Handle, include []string) []Key {
	shape := ShapeOf(h)
	inc := canonicalInclude(include)
	sum := digest(shape, inc)

	c.mu.RLock()
	keys, ok := c.lookup(sum, shape, inc)
	c.mu.RUnlock()
	if ok {
		c.record(true)
		return keys
	}

	walked := FilterKeys(Levels(h.Keys(), h.IsCoordinate), include)

	c.mu.Lock()
	defer c.mu.Unlock()
	if keys, ok := c.lookup(sum, shape, inc); ok {
		c.record(true)
		return keys
	}
	c.entries[sum] = append(c.entries[sum], &cacheEntry{shape: shape, include: inc, keys: walked})
	c.shapes[shape] = struct{}{}
	c.record(false)
	return walked
}

// Stats returns a snapshot of the cache counters.
func (c *ShapeCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, bucket := range c.entries {
		n += len(bucket)
	}
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: n,
		Shapes:  len(c.shapes),
	}
}

func (c *ShapeCache) lookup(sum uint64, shape Shape, inc string) ([]Key, bool) {
	for _, e := range c.entries[sum] {
		if e.shape == shape && e.include == inc {
			return e.keys, true
		}
	}
	return nil, false
}

func (c *ShapeCache) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.observer != nil {
		c.observer(hit)
	}
}

// canonicalInclude sorts and deduplicates the include set into one string.
func canonicalInclude(include []string) string {
	s := slices.Clone(include)
	slices.Sort(s)
	s = slices.Compact(s)
	n := 0
	for _, v := range s {
		n += len(v) + 1
	}
	b := make([]byte, 0, n)
	for _, v := range s {
		b = append(b, v...)
		b = append(b, 0)
	}
	return string(b)
}

func digest(s Shape, include string) uint64 {
	d := xxhash.New()
	d.WriteString(strconv.Itoa(s.Edition))
	d.WriteString("/")
	d.WriteString(strconv.Itoa(s.MasterTable))
	d.WriteString("/")
	d.WriteString(strconv.Itoa(s.Subsets))
	d.WriteString(strconv.FormatBool(s.Compressed))
	d.WriteString("/")
	d.WriteString(s.Descriptors)
	d.WriteString("/")
	d.WriteString(s.Replications)
	d.WriteString("/")
	d.WriteString(include)
	return d.Sum64()
}
