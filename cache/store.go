package cache

import (
	"time"
)

// Store holds cached values keyed by query text.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: a non-nil error reports a store fault. The Cache absorbs it
//     and computes without the store.
//   - Ownership: values are stored as given and never copied.
type Store[V any] interface {
	// Get returns the value for key. A missing key is (zero, false, nil).
	Get(key string) (V, bool, error)

	// Add stores value under key, possibly evicting other entries. A store
	// may decline to keep the entry.
	Add(key string, value V) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// Len returns the number of entries. It may be approximate.
	Len() int

	// Purge removes every entry.
	Purge()

	// Close releases background resources.
	Close() error
}

// Weigher returns the weight of an entry for maximumWeight policies.
type Weigher[V any] func(query string, value V) int64

// QueryLengthWeigher weighs an entry by the length of its query text.
func QueryLengthWeigher[V any](query string, _ V) int64 {
	return int64(len(query))
}

// NewStore builds the Store implementing p:
//
//   - maximumWeight: ristretto, weighed by weigh
//   - maximumSize without expiry: LRU
//   - expireAfterWrite or unbounded: expirable LRU
//   - expireAfterAccess: any of the above behind an idle timer
//   - disabled: a store that keeps nothing
//
// onEvict, if non-nil, is called for every entry leaving the store.
func NewStore[V any](p Policy, weigh Weigher[V], onEvict func()) (Store[V], error) {
	return newStore(p, weigh, onEvict, time.Now)
}

func newStore[V any](p Policy, weigh Weigher[V], onEvict func(), now func() time.Time) (Store[V], error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !p.ShouldCache() {
		return noopStore[V]{}, nil
	}
	if weigh == nil {
		weigh = QueryLengthWeigher[V]
	}
	if onEvict == nil {
		onEvict = func() {}
	}

	if p.ExpireAfterAccess > 0 {
		inner, err := newBoundedStore(p, func(q string, e *idleEntry[V]) int64 {
			return weigh(q, e.value)
		}, onEvict)
		if err != nil {
			return nil, err
		}
		return newIdleStore(inner, p.ExpireAfterAccess, now), nil
	}
	return newBoundedStore(p, weigh, onEvict)
}

func newBoundedStore[V any](p Policy, weigh Weigher[V], onEvict func()) (Store[V], error) {
	switch {
	case p.MaximumWeight > 0:
		return newWeightedStore(p.MaximumWeight, p.ExpireAfterWrite, weigh, onEvict)
	case p.ExpireAfterWrite > 0 || p.MaximumSize == 0:
		return newExpirableStore[V](int(p.MaximumSize), p.ExpireAfterWrite, onEvict), nil
	default:
		return newLRUStore[V](int(p.MaximumSize), onEvict)
	}
}

// noopStore keeps nothing. Every Get misses.
type noopStore[V any] struct{}

func (noopStore[V]) Get(string) (V, bool, error) {
	var zero V
	return zero, false, nil
}
func (noopStore[V]) Add(string, V) error { return nil }
func (noopStore[V]) Remove(string) error { return nil }
func (noopStore[V]) Len() int            { return 0 }
func (noopStore[V]) Purge()              {}
func (noopStore[V]) Close() error        { return nil }
