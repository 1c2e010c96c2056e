package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

type idleEntry[V any] struct {
	value      V
	lastAccess atomic.Int64 // unix nanos
}

// idleStore expires entries that have not been read for idle. Expired
// entries are dropped lazily on the next Get, or by the inner store's own
// eviction.
type idleStore[V any] struct {
	inner Store[*idleEntry[V]]
	idle  time.Duration
	now   func() time.Time

	// mu orders Add against the removal of stale entries, so a stale read
	// never deletes an entry written after it.
	mu sync.Mutex
}

func newIdleStore[V any](inner Store[*idleEntry[V]], idle time.Duration, now func() time.Time) *idleStore[V] {
	return &idleStore[V]{inner: inner, idle: idle, now: now}
}

func (s *idleStore[V]) Get(key string) (V, bool, error) {
	var zero V
	e, ok, err := s.inner.Get(key)
	if err != nil || !ok {
		return zero, false, err
	}
	now := s.now().UnixNano()
	if now-e.lastAccess.Load() >= int64(s.idle) {
		return zero, false, s.removeStale(key, e)
	}
	e.lastAccess.Store(now)
	return e.value, true, nil
}

func (s *idleStore[V]) Add(key string, value V) error {
	e := &idleEntry[V]{value: value}
	e.lastAccess.Store(s.now().UnixNano())
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Add(key, e)
}

// removeStale deletes key only while it still holds stale.
func (s *idleStore[V]) removeStale(key string, stale *idleEntry[V]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok, err := s.inner.Get(key)
	if err != nil || !ok || cur != stale {
		return err
	}
	return s.inner.Remove(key)
}

func (s *idleStore[V]) Remove(key string) error { return s.inner.Remove(key) }
func (s *idleStore[V]) Len() int                { return s.inner.Len() }
func (s *idleStore[V]) Purge()                  { s.inner.Purge() }
func (s *idleStore[V]) Close() error            { return s.inner.Close() }
