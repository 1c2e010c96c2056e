// Package resilience provides the circuit breaker that guards the query
// cache's backing store.
//
// A store that keeps failing would otherwise be hit, and logged about, on
// every request. The breaker counts consecutive failures and, once open,
// rejects calls with ErrCircuitOpen so callers can go straight to their
// uncached path. After ResetTimeout a single probe is let through; a
// successful probe closes the circuit again.
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    Name:         "query-cache",
//	    MaxFailures:  5,
//	    ResetTimeout: 30 * time.Second,
//	})
//
//	if err := cb.Allow(); err != nil {
//	    return computeDirectly()
//	}
//	v, err := store.Get(key)
//	cb.Record(err)
package resilience
