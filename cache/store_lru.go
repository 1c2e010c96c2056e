package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// lruStore evicts the least recently used entry once size is exceeded.
type lruStore[V any] struct {
	lru *lru.Cache[string, V]
}

func newLRUStore[V any](size int, onEvict func()) (*lruStore[V], error) {
	c, err := lru.NewWithEvict[string, V](size, func(string, V) { onEvict() })
	if err != nil {
		return nil, err
	}
	return &lruStore[V]{lru: c}, nil
}

func (s *lruStore[V]) Get(key string) (V, bool, error) {
	v, ok := s.lru.Get(key)
	return v, ok, nil
}

func (s *lruStore[V]) Add(key string, value V) error {
	s.lru.Add(key, value)
	return nil
}

func (s *lruStore[V]) Remove(key string) error {
	s.lru.Remove(key)
	return nil
}

func (s *lruStore[V]) Len() int     { return s.lru.Len() }
func (s *lruStore[V]) Purge()       { s.lru.Purge() }
func (s *lruStore[V]) Close() error { return nil }

// expirableStore drops entries ttl after they were written. A size of zero
// means unbounded and a ttl of zero means entries never expire.
type expirableStore[V any] struct {
	lru *expirable.LRU[string, V]
}

func newExpirableStore[V any](size int, ttl time.Duration, onEvict func()) *expirableStore[V] {
	return &expirableStore[V]{
		lru: expirable.NewLRU[string, V](size, func(string, V) { onEvict() }, ttl),
	}
}

func (s *expirableStore[V]) Get(key string) (V, bool, error) {
	v, ok := s.lru.Get(key)
	return v, ok, nil
}

func (s *expirableStore[V]) Add(key string, value V) error {
	s.lru.Add(key, value)
	return nil
}

func (s *expirableStore[V]) Remove(key string) error {
	s.lru.Remove(key)
	return nil
}

func (s *expirableStore[V]) Len() int { return s.lru.Len() }
func (s *expirableStore[V]) Purge()   { s.lru.Purge() }

// Close is a no-op. The expiry goroutine of expirable.LRU cannot be stopped.
func (s *expirableStore[V]) Close() error { return nil }
