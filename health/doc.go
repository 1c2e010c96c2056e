// Package health reports whether the server and its query cache are fit to
// serve.
//
// A Checker reports one component as healthy, degraded or unhealthy. A
// Registry runs every Checker concurrently under a timeout and reports the
// worst Status:
//
//	reg := health.NewRegistry(0)
//	reg.Add(health.NewCacheChecker(docs))
//	health.RegisterHandlers(mux, reg)
//
// RegisterHandlers mounts a liveness probe at /healthz, a readiness probe
// at /readyz and a JSON report at /health. A degraded component keeps the
// server ready: a query cache whose store breaker is open still answers
// every request by compiling directly.
package health
