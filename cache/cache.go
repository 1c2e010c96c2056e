package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/gqlcache/observe"
	"github.com/jonwraymond/gqlcache/resilience"
)

// DefaultName is the cache name used in logs and metrics when none is set.
const DefaultName = "query-cache"

// Fallback reasons reported to observe.Metrics.
const (
	ReasonStoreError   = "store_error"
	ReasonBreakerOpen  = "breaker_open"
	ReasonComputeError = "compute_error"
	ReasonClosed       = "closed"
)

// ComputeFunc turns query text into the value to cache. It must depend on
// query alone; the cache may hand its result to any caller asking for the
// same text.
type ComputeFunc[V any] func(ctx context.Context, query string) (V, error)

// Source tells where a looked up value came from.
type Source int

const (
	// SourceHit means the value was already stored.
	SourceHit Source = iota
	// SourceComputed means the value was computed by a cached computation,
	// possibly one led by another caller.
	SourceComputed
	// SourceFallback means the value was computed directly, bypassing the
	// store, after a store fault or a failed computation.
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceHit:
		return "hit"
	case SourceComputed:
		return "computed"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Result is the outcome of a Lookup.
type Result[V any] struct {
	Value  V
	Source Source

	// Shared is true when another caller ran the computation.
	Shared bool

	// Err is the error returned by compute on the fallback path. Only
	// compute errors are ever reported here.
	Err error

	// Cause is the fault that sent the lookup to the fallback path, or a
	// store write failure after a successful computation. Get never
	// returns it.
	Cause error
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Fallbacks uint64
	Evictions uint64
	Entries   int
}

// Cache memoizes a ComputeFunc per query text.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent lookups of one absent
//     key run compute once; lookups of other keys are never blocked by it.
//   - Errors: store faults are absorbed and never returned to callers.
//   - Panics: a panic in compute propagates to the caller that ran it.
//     Callers waiting on that computation fall back to computing directly.
type Cache[V any] struct {
	policy  Policy
	meta    observe.CacheMeta
	store   Store[V]
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	mw      *observe.Middleware
	logger  observe.Logger
	metrics observe.Metrics

	hits      atomic.Uint64
	misses    atomic.Uint64
	fallbacks atomic.Uint64
	evictions atomic.Uint64

	closed     atomic.Bool
	closeOnce  sync.Once
	unregister func() error
}

type options struct {
	name    string
	logger  observe.Logger
	metrics observe.Metrics
	tracer  observe.Tracer
	breaker resilience.CircuitBreakerConfig
	store   any
	weigher any
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*options)

// WithName sets the name reported in logs, spans and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer sets the tracer used for compute spans.
func WithTracer(t observe.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithMiddleware takes tracer, metrics and logger from mw.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *options) {
		if mw == nil {
			return
		}
		o.tracer, o.metrics, o.logger = mw.Tracer(), mw.Metrics(), mw.Logger()
	}
}

// WithBreaker configures the circuit breaker guarding the store. Name
// defaults to the cache name.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(o *options) { o.breaker = cfg }
}

// WithStore replaces the store built from the policy. The store's value
// type must match the cache's.
func WithStore[V any](s Store[V]) Option {
	return func(o *options) { o.store = s }
}

// WithWeigher sets how entries are weighed under a maximumWeight policy.
// The default weighs an entry by the length of its query text.
func WithWeigher[V any](w Weigher[V]) Option {
	return func(o *options) { o.weigher = w }
}

// WithClock sets the clock used for expireAfterAccess.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a Cache bounded by policy.
func New[V any](policy Policy, opts ...Option) (*Cache[V], error) {
	o := options{name: DefaultName, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observe.NopLogger()
	}
	if o.metrics == nil {
		o.metrics = observe.NoopMetrics()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	c := &Cache[V]{
		policy:  policy,
		meta:    observe.CacheMeta{Name: o.name, Policy: policy.String()},
		logger:  o.logger.With(observe.Field{Key: "cache", Value: o.name}),
		metrics: o.metrics,
	}
	c.mw = observe.NewMiddleware(o.tracer, o.metrics, o.logger)

	var weigh Weigher[V]
	if o.weigher != nil {
		w, ok := o.weigher.(Weigher[V])
		if !ok {
			return nil, fmt.Errorf("%w: weigher is %T", ErrInvalidOption, o.weigher)
		}
		weigh = w
	}

	if o.store != nil {
		s, ok := o.store.(Store[V])
		if !ok {
			return nil, fmt.Errorf("%w: store is %T", ErrInvalidOption, o.store)
		}
		c.store = s
	} else {
		s, err := newStore(policy, weigh, c.onEvict, o.now)
		if err != nil {
			return nil, err
		}
		c.store = s
	}

	bcfg := o.breaker
	if bcfg.Name == "" {
		bcfg.Name = o.name
	}
	next := bcfg.OnStateChange
	bcfg.OnStateChange = func(name string, from, to resilience.State) {
		c.logger.Warn(context.Background(), "query cache store breaker changed state",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
		if next != nil {
			next(name, from, to)
		}
	}
	c.breaker = resilience.NewCircuitBreaker(bcfg)

	unregister, err := c.metrics.ObserveEntries(c.meta, c.Len)
	if err != nil {
		_ = c.store.Close()
		return nil, fmt.Errorf("cache: register entries gauge: %w", err)
	}
	c.unregister = unregister

	c.logger.Info(context.Background(), "query cache created",
		observe.Field{Key: "policy", Value: c.meta.Policy},
		observe.Field{Key: "bound", Value: policy.Describe()},
	)
	return c, nil
}

// Get returns the value for query, computing it with compute if absent.
// The error is compute's; cache faults are never returned.
func (c *Cache[V]) Get(ctx context.Context, query string, compute ComputeFunc[V]) (V, error) {
	r := c.Lookup(ctx, query, compute)
	return r.Value, r.Err
}

type flightResult[V any] struct {
	value    V
	hit      bool
	writeErr error
}

// Lookup is Get with the details of how the value was obtained.
func (c *Cache[V]) Lookup(ctx context.Context, query string, compute ComputeFunc[V]) Result[V] {
	if compute == nil {
		return Result[V]{Source: SourceFallback, Err: ErrNilCompute}
	}

	v, ok, err := c.storeGet(query)
	if err != nil {
		return c.fallback(ctx, query, compute, err)
	}
	if ok {
		c.hits.Add(1)
		c.metrics.RecordLookup(ctx, c.meta, observe.OutcomeHit)
		return Result[V]{Value: v, Source: SourceHit}
	}

	var (
		leader   bool
		panicked any
	)
	out, err, _ := c.group.Do(query, func() (any, error) {
		leader = true
		// A flight for this key may have stored it since our miss.
		if v, ok, err := c.storeGet(query); err == nil && ok {
			return flightResult[V]{value: v, hit: true}, nil
		}

		c.misses.Add(1)
		c.metrics.RecordMiss(ctx, c.meta)
		c.logger.Debug(ctx, "query cache miss", observe.Field{Key: "query", Value: query})

		v, err := func() (v V, err error) {
			defer func() {
				if r := recover(); r != nil {
					panicked, err = r, errComputePanicked
				}
			}()
			return c.instrument(compute)(ctx, query)
		}()
		if err != nil {
			return nil, err
		}
		return flightResult[V]{value: v, writeErr: c.storeAdd(query, v)}, nil
	})
	if panicked != nil {
		panic(panicked)
	}
	if err != nil {
		// The key was released with nothing stored.
		return c.fallback(ctx, query, compute, err)
	}

	fr := out.(flightResult[V])
	res := Result[V]{Value: fr.value, Source: SourceComputed, Shared: !leader}
	outcome := observe.OutcomeComputed
	switch {
	case fr.hit:
		res.Source, outcome = SourceHit, observe.OutcomeHit
		c.hits.Add(1)
	case !leader:
		outcome = observe.OutcomeShared
	}
	if fr.writeErr != nil {
		res.Cause = fr.writeErr
		if leader {
			c.logStoreFault(ctx, "unable to store document in cache", fr.writeErr)
		}
	}
	c.metrics.RecordLookup(ctx, c.meta, outcome)
	return res
}

func (c *Cache[V]) instrument(compute ComputeFunc[V]) func(context.Context, string) (V, error) {
	return observe.Wrap[V](c.mw, c.meta, compute)
}

// fallback computes directly, bypassing the store and the miss counter.
func (c *Cache[V]) fallback(ctx context.Context, query string, compute ComputeFunc[V], cause error) Result[V] {
	reason := fallbackReason(cause)
	c.fallbacks.Add(1)
	c.metrics.RecordFallback(ctx, c.meta, reason)
	switch reason {
	case ReasonBreakerOpen, ReasonClosed:
		c.logger.Debug(ctx, "query cache bypassed", observe.Field{Key: "reason", Value: reason})
	case ReasonComputeError:
		c.logger.Warn(ctx, "document compute failed, retrying uncached", observe.Field{Key: "error", Value: cause})
	default:
		c.logStoreFault(ctx, "unable to get document from cache", cause)
	}

	v, err := c.instrument(compute)(ctx, query)
	c.metrics.RecordLookup(ctx, c.meta, observe.OutcomeFallback)
	return Result[V]{Value: v, Source: SourceFallback, Err: err, Cause: cause}
}

func (c *Cache[V]) logStoreFault(ctx context.Context, msg string, err error) {
	c.logger.Error(ctx, msg,
		observe.Field{Key: "error", Value: err},
		observe.Field{Key: "breaker", Value: c.breaker.State().String()},
	)
}

// storeError marks an error as coming from the store rather than compute.
type storeError struct{ err error }

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

func fallbackReason(err error) string {
	var se *storeError
	if !errors.As(err, &se) {
		return ReasonComputeError
	}
	switch {
	case errors.Is(se.err, ErrClosed):
		return ReasonClosed
	case errors.Is(se.err, resilience.ErrCircuitOpen):
		return ReasonBreakerOpen
	default:
		return ReasonStoreError
	}
}

// guard runs a store operation through the breaker, turning panics into
// errors.
func (c *Cache[V]) guard(op func() error) (err error) {
	if c.closed.Load() {
		return &storeError{ErrClosed}
	}
	if err := c.breaker.Allow(); err != nil {
		return &storeError{err}
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStorePanic, r)
		}
		c.breaker.Record(err)
		if err != nil {
			err = &storeError{err}
		}
	}()
	return op()
}

func (c *Cache[V]) storeGet(key string) (v V, ok bool, err error) {
	err = c.guard(func() error {
		var gerr error
		v, ok, gerr = c.store.Get(key)
		return gerr
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return v, ok, nil
}

func (c *Cache[V]) storeAdd(key string, v V) error {
	return c.guard(func() error { return c.store.Add(key, v) })
}

func (c *Cache[V]) onEvict() {
	c.evictions.Add(1)
	c.metrics.RecordEviction(context.Background(), c.meta)
}

// Invalidate removes the entry for query. The next lookup computes it again.
func (c *Cache[V]) Invalidate(query string) {
	if err := c.guard(func() error { return c.store.Remove(query) }); err != nil {
		c.logStoreFault(context.Background(), "unable to invalidate document", err)
	}
}

// Purge removes every entry.
func (c *Cache[V]) Purge() {
	if err := c.guard(func() error { c.store.Purge(); return nil }); err != nil {
		c.logStoreFault(context.Background(), "unable to purge cache", err)
	}
}

// Len returns the number of stored entries, or 0 if the store is failing.
// It does not go through the breaker.
func (c *Cache[V]) Len() (n int) {
	if c.closed.Load() {
		return 0
	}
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return c.store.Len()
}

// Misses returns how many cached computations have run.
func (c *Cache[V]) Misses() uint64 { return c.misses.Load() }

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Fallbacks: c.fallbacks.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.Len(),
	}
}

// Policy returns the policy the cache was built with.
func (c *Cache[V]) Policy() Policy { return c.policy }

// Name returns the cache name.
func (c *Cache[V]) Name() string { return c.meta.Name }

// BreakerState reports the state of the breaker guarding the store.
func (c *Cache[V]) BreakerState() resilience.State { return c.breaker.State() }

// BreakerStats returns the counters of the breaker guarding the store.
func (c *Cache[V]) BreakerStats() resilience.Stats { return c.breaker.Stats() }

// Close releases the store. Lookups after Close compute directly.
func (c *Cache[V]) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.unregister != nil {
			if err := c.unregister(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := c.store.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
