package cache

import (
	"time"

	"MarketPsyche/internal/model"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	result   *model.AnalysisResult
	storedAt time.Time
}

// entryStore is the storage behind AnalysisCache. Callers hold AnalysisCache.mu.
type entryStore interface {
	get(k Key) (entry, bool)
	// peek reads without touching recency.
	peek(k Key) (entry, bool)
	put(k Key, e entry)
	remove(k Key)
	keys() []Key
	len() int
}

// mapStore is unbounded; entries leave only through TTL eviction or invalidation.
type mapStore map[Key]entry

func (m mapStore) get(k Key) (entry, bool) {
	e, ok := m[k]
	return e, ok
}

func (m mapStore) peek(k Key) (entry, bool) { return m.get(k) }

func (m mapStore) put(k Key, e entry) { m[k] = e }

func (m mapStore) remove(k Key) { delete(m, k) }

func (m mapStore) keys() []Key {
	ks := make([]Key, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}

func (m mapStore) len() int { return len(m) }

// lruStore bounds the number of entries, evicting the least recently used.
type lruStore struct {
	c *lru.Cache[Key, entry]
}

func newLRUStore(size int) (*lruStore, error) {
	c, err := lru.New[Key, entry](size)
	if err != nil {
		return nil, err
	}
	return &lruStore{c: c}, nil
}

func (s *lruStore) get(k Key) (entry, bool) { return s.c.Get(k) }

func (s *lruStore) peek(k Key) (entry, bool) { return s.c.Peek(k) }

func (s *lruStore) put(k Key, e entry) { s.c.Add(k, e) }

func (s *lruStore) remove(k Key) { s.c.Remove(k) }

func (s *lruStore) keys() []Key { return s.c.Keys() }

func (s *lruStore) len() int { return s.c.Len() }
