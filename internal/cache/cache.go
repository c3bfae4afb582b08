package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"MarketPsyche/internal/logger"
	"MarketPsyche/internal/model"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a result stays fresh.
const DefaultTTL = 900 * time.Second

// Key identifies one cached analysis.
type Key struct {
	Instrument string
	Kind       model.MarketKind
	Period     model.Period
}

func (k Key) String() string {
	return fmt.Sprintf("analysis:%s:%s:%s", k.Kind, k.Instrument, k.Period)
}

// ComputeFunc produces a fresh result for a key.
type ComputeFunc func(ctx context.Context) (*model.AnalysisResult, error)

// Options configures an AnalysisCache.
type Options struct {
	// TTL defaults to DefaultTTL when zero.
	TTL time.Duration
	// MaxEntries bounds the cache with LRU eviction; zero means unbounded.
	MaxEntries int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Entries      int   `json:"entries"`
	Active       int   `json:"active"`
	Expired      int   `json:"expired"`
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
	Computations int64 `json:"computations"`
	InFlight     int64 `json:"in_flight"`
}

// AnalysisCache memoizes results per key with a TTL and runs at most one
// computation per key at a time. Unrelated keys never wait on each other.
type AnalysisCache struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	store entryStore

	group singleflight.Group

	hits         atomic.Int64
	misses       atomic.Int64
	computations atomic.Int64
	inFlight     atomic.Int64
}

// New creates an AnalysisCache.
func New(opts Options) (*AnalysisCache, error) {
	c := &AnalysisCache{ttl: opts.TTL, now: opts.Now}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	if opts.MaxEntries > 0 {
		s, err := newLRUStore(opts.MaxEntries)
		if err != nil {
			return nil, fmt.Errorf("create lru store: %w", err)
		}
		c.store = s
	} else {
		c.store = mapStore{}
	}
	return c, nil
}

// Get returns the cached result for key if it is younger than the TTL.
// Expired entries are evicted.
func (c *AnalysisCache) Get(key Key) (*model.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.get(key)
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		c.store.remove(key)
		return nil, false
	}
	return e.result, true
}

// GetOrCompute returns the fresh cached result for key, or runs fn to produce
// and store one. Concurrent callers for the same key share a single run of fn.
// fn runs detached from ctx cancellation so that other waiters still receive
// the result; a caller whose ctx ends stops waiting and gets ctx.Err().
// Failed computations are not cached and the next call retries.
func (c *AnalysisCache) GetOrCompute(ctx context.Context, key Key, fn ComputeFunc) (*model.AnalysisResult, error) {
	if res, ok := c.Get(key); ok {
		c.hits.Add(1)
		logger.Debug().Str("key", key.String()).Msg("cache hit")
		return res, nil
	}
	c.misses.Add(1)

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		// A flight that started after another one stored the key must not recompute.
		if res, ok := c.Get(key); ok {
			return res, nil
		}
		return c.compute(detached, key, fn)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*model.AnalysisResult), nil
	}
}

func (c *AnalysisCache) compute(ctx context.Context, key Key, fn ComputeFunc) (res *model.AnalysisResult, err error) {
	c.computations.Add(1)
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("compute %s panicked: %v", key, p)
		}
	}()

	res, err = fn(ctx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("compute %s returned no result", key)
	}
	c.Set(key, res)
	return res, nil
}

// Set stores res under key, replacing any previous entry.
func (c *AnalysisCache) Set(key Key, res *model.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.put(key, entry{result: res, storedAt: c.now()})
}

// Invalidate removes entries matching kind and instrument. An empty value
// matches everything, so Invalidate("", "") clears the cache.
func (c *AnalysisCache) Invalidate(kind model.MarketKind, instrument string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, k := range c.store.keys() {
		if kind != "" && k.Kind != kind {
			continue
		}
		if instrument != "" && k.Instrument != instrument {
			continue
		}
		c.store.remove(k)
		n++
	}
	return n
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *AnalysisCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, k := range c.store.keys() {
		if e, ok := c.store.peek(k); ok && c.expired(e) {
			c.store.remove(k)
			n++
		}
	}
	return n
}

// Stats reports entry counts and hit/miss counters.
func (c *AnalysisCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Entries:      c.store.len(),
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Computations: c.computations.Load(),
		InFlight:     c.inFlight.Load(),
	}
	for _, k := range c.store.keys() {
		if e, ok := c.store.peek(k); ok && c.expired(e) {
			s.Expired++
		} else {
			s.Active++
		}
	}
	return s
}

func (c *AnalysisCache) expired(e entry) bool {
	return c.now().Sub(e.storedAt) >= c.ttl
}
