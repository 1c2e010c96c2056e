package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/gqlcache/cache"
	"github.com/jonwraymond/gqlcache/resilience"
)

// CacheView is the part of a query cache a CacheChecker reports on.
// *cache.Cache satisfies it for any value type.
type CacheView interface {
	Name() string
	Policy() cache.Policy
	Stats() cache.Stats
	BreakerStats() resilience.Stats
}

// CacheChecker reports a query cache by the state of its store breaker.
// A closed breaker is healthy. Half-open and open are degraded, since
// lookups still succeed by computing directly.
type CacheChecker struct {
	c CacheView
}

// NewCacheChecker returns a CacheChecker for c.
func NewCacheChecker(c CacheView) *CacheChecker {
	return &CacheChecker{c: c}
}

func (cc *CacheChecker) Name() string { return cc.c.Name() }

func (cc *CacheChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	p := cc.c.Policy()
	st := cc.c.Stats()
	bs := cc.c.BreakerStats()
	state := bs.State
	details := map[string]any{
		"policy":             p.String(),
		"breaker":            state.String(),
		"breaker_trips":      bs.Trips,
		"breaker_rejections": bs.Rejections,
		"entries":            st.Entries,
		"hits":               st.Hits,
		"misses":             st.Misses,
		"fallbacks":          st.Fallbacks,
		"evictions":          st.Evictions,
	}
	if p.MaximumSize > 0 {
		details["usage_percent"] = float64(st.Entries) / float64(p.MaximumSize) * 100
	}

	switch state {
	case resilience.StateClosed:
		if !p.ShouldCache() {
			return Healthy("query cache disabled").WithDetails(details)
		}
		return Healthy(p.Describe()).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("query cache store is being probed after failures").WithDetails(details)
	default:
		r := Degraded(fmt.Sprintf("query cache store breaker is %s, compiling every query", state))
		r.Err = ErrBreakerOpen
		return r.WithDetails(details)
	}
}
