// Package cache memoizes marshaled recommendation responses. The served
// model is read-only for the lifetime of the process, so equal preference
// requests always rank the same courses and the encoded JSON body can be
// replayed until its TTL passes.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache sizing defaults. The serve command uses these as flag defaults.
const (
	// DefaultMaxEntries bounds the cache when no size is configured. A
	// marshaled response for a full 50-course ranking is a few kilobytes,
	// so a thousand entries is a modest memory footprint.
	DefaultMaxEntries = 1000

	// DefaultTTL bounds how long a one-off request's body is retained.
	// Responses never go stale against a fixed model; the TTL exists to
	// reclaim memory, not to refresh results.
	DefaultTTL = 5 * time.Minute

	defaultSweepInterval = time.Minute
)

// Options configures a ResponseCache. Zero fields take the defaults.
type Options struct {
	MaxEntries    int
	TTL           time.Duration
	SweepInterval time.Duration
}

// Stats counts cache activity since construction.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Stored  int64 `json:"stored"`
	Evicted int64 `json:"evicted"`
	Expired int64 `json:"expired"`
	Entries int   `json:"entries"`
}

// HitRate returns the fraction of lookups served from the cache.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type cachedResponse struct {
	key       string
	body      []byte
	expiresAt time.Time
}

// ResponseCache holds recently served recommendation bodies keyed by
// RequestKey. Lookups refresh recency; when the cache is full the least
// recently served entry is dropped. Safe for concurrent use.
type ResponseCache struct {
	mu     sync.Mutex
	byKey  map[string]*list.Element
	recent *list.List // front is the most recently served entry

	maxEntries int
	ttl        time.Duration

	hits    int64
	misses  int64
	stored  int64
	evicted int64
	expired int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewResponseCache builds a cache and starts a background sweeper that
// drops expired entries. Close stops the sweeper.
func NewResponseCache(opts Options) *ResponseCache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}

	c := &ResponseCache{
		byKey:      make(map[string]*list.Element),
		recent:     list.New(),
		maxEntries: opts.MaxEntries,
		ttl:        opts.TTL,
		stop:       make(chan struct{}),
	}
	go c.sweep(opts.SweepInterval)
	return c
}

// Get returns the cached body for key. An entry past its TTL counts as a
// miss and is dropped on the spot.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.byKey[key]
	if !ok {
		c.misses++
		return nil, false
	}
	resp := elem.Value.(*cachedResponse)
	if time.Now().After(resp.expiresAt) {
		c.remove(elem)
		c.expired++
		c.misses++
		return nil, false
	}
	c.recent.MoveToFront(elem)
	c.hits++
	return resp.body, true
}

// Set stores body under key with a fresh TTL, evicting the least recently
// served entry when the cache is full.
func (c *ResponseCache) Set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cachedResponse{
		key:       key,
		body:      body,
		expiresAt: time.Now().Add(c.ttl),
	}

	if elem, ok := c.byKey[key]; ok {
		elem.Value = entry
		c.recent.MoveToFront(elem)
		c.stored++
		return
	}

	for c.recent.Len() >= c.maxEntries {
		oldest := c.recent.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest)
		c.evicted++
	}

	c.byKey[key] = c.recent.PushFront(entry)
	c.stored++
}

// Stats returns a snapshot of cache activity.
func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Stored:  c.stored,
		Evicted: c.evicted,
		Expired: c.expired,
		Entries: c.recent.Len(),
	}
}

// Close stops the background sweeper. The cache stays usable afterwards;
// expired entries are then only dropped lazily on lookup.
func (c *ResponseCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *ResponseCache) remove(elem *list.Element) {
	resp := elem.Value.(*cachedResponse)
	delete(c.byKey, resp.key)
	c.recent.Remove(elem)
}

func (c *ResponseCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.dropExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *ResponseCache) dropExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var stale []*list.Element
	for elem := c.recent.Back(); elem != nil; elem = elem.Prev() {
		resp := elem.Value.(*cachedResponse)
		if now.After(resp.expiresAt) {
			stale = append(stale, elem)
		}
	}
	for _, elem := range stale {
		c.remove(elem)
		c.expired++
	}
}
