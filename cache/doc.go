// Package cache memoizes expensive, deterministic computations keyed by
// query text, such as parsing and validating a GraphQL document.
//
// A Cache is bounded by a Policy, usually parsed from a spec string:
//
//	p, err := cache.ParsePolicy("maximumSize=1000,expireAfterAccess=1h")
//	c, err := cache.New[*graphql.Document](p, cache.WithLogger(logger))
//	doc, err := c.Get(ctx, query, compiler.Compile)
//
// Keys are the verbatim query text. Two queries that differ only in
// whitespace are different entries.
//
// Concurrent lookups of the same absent key share one computation; the
// miss counter counts computations, not callers. Lookups of other keys are
// never blocked by it.
//
// The store is an optimization, never a dependency. A store that errors or
// panics is logged and bypassed: the lookup computes directly and returns
// that value uncached. Repeated store faults open a circuit breaker so the
// store is skipped without a log line per request until it recovers. If
// compute itself fails, nothing is stored, the key is released, and every
// caller that waited on it retries once uncached.
package cache
