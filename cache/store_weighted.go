package cache

import (
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// weightedStore bounds the total weight of entries with ristretto. Its
// admission policy may decline new entries when full, so an Add is not a
// guarantee that the next Get hits.
type weightedStore[V any] struct {
	c     *ristretto.Cache[string, V]
	weigh Weigher[V]
	ttl   time.Duration
	n     atomic.Int64
}

func newWeightedStore[V any](maxWeight int64, ttl time.Duration, weigh Weigher[V], onEvict func()) (*weightedStore[V], error) {
	s := &weightedStore[V]{weigh: weigh, ttl: ttl}

	// ristretto wants ~10 counters per entry held when full. Assume entries
	// weigh about 10 each, the weight of a tiny query.
	counters := maxWeight
	if counters < 1000 {
		counters = 1000
	}
	if counters > 1<<24 {
		counters = 1 << 24
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters:        counters,
		MaxCost:            maxWeight,
		BufferItems:        64,
		IgnoreInternalCost: true,
		OnEvict: func(*ristretto.Item[V]) {
			s.n.Add(-1)
			onEvict()
		},
	})
	if err != nil {
		return nil, err
	}
	s.c = c
	return s, nil
}

func (s *weightedStore[V]) Get(key string) (V, bool, error) {
	v, ok := s.c.Get(key)
	return v, ok, nil
}

func (s *weightedStore[V]) Add(key string, value V) error {
	cost := s.weigh(key, value)
	if cost < 1 {
		cost = 1
	}
	_, existed := s.c.Get(key)
	if !s.c.SetWithTTL(key, value, cost, s.ttl) {
		return nil
	}
	// Writes are buffered. Wait so the entry is visible to the next Get.
	s.c.Wait()
	if _, ok := s.c.Get(key); ok && !existed {
		s.n.Add(1)
	}
	return nil
}

func (s *weightedStore[V]) Remove(key string) error {
	if _, ok := s.c.Get(key); ok {
		s.n.Add(-1)
	}
	s.c.Del(key)
	return nil
}

func (s *weightedStore[V]) Len() int {
	if n := s.n.Load(); n > 0 {
		return int(n)
	}
	return 0
}

func (s *weightedStore[V]) Purge() {
	s.c.Clear()
	s.n.Store(0)
}

func (s *weightedStore[V]) Close() error {
	s.c.Close()
	return nil
}
