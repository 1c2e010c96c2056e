// Package observe provides the telemetry used by the query cache: a zap
// backed structured Logger, OpenTelemetry cache metrics and compute spans.
//
// NewObserver turns a Config into tracer and meter providers. Disabled
// subsystems are backed by no-ops, so callers never nil-check.
//
// Metrics emitted by NewMetrics:
//
//	gqlcache.lookups             counter   {cache.name, outcome}
//	gqlcache.misses              counter   {cache.name}
//	gqlcache.fallbacks           counter   {cache.name, reason}
//	gqlcache.evictions           counter   {cache.name}
//	gqlcache.compute.duration_ms histogram {cache.name, error}
//	gqlcache.entries             gauge     {cache.name}
//
// Wrap instruments a compute function with a "gqlcache.compute" span, the
// duration histogram and an error log line. Log fields named token,
// password, authorization, cookie or variables are written as "[REDACTED]".
package observe
