package observe

import (
	"context"
	"time"
)

// Middleware wraps document computations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: functions returned by Wrap are safe for concurrent use
//     when the wrapped function is.
//   - Context: the span context is propagated to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NoopTracer()
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Tracer returns the middleware's tracer.
func (m *Middleware) Tracer() Tracer { return m.tracer }

// Metrics returns the middleware's metrics.
func (m *Middleware) Metrics() Metrics { return m.metrics }

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap instruments fn. Each call runs inside a compute span, its duration is
// recorded and failures are logged at error level.
func Wrap[V any](m *Middleware, meta CacheMeta, fn func(context.Context, string) (V, error)) func(context.Context, string) (V, error) {
	logger := m.logger.With(Field{Key: "cache", Value: meta.Name})
	return func(ctx context.Context, query string) (V, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta, query)
		start := time.Now()

		v, err := fn(ctx, query)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordCompute(ctx, meta, duration, err)

		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
			{Key: "query_length", Value: len(query)},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "document compute failed", fields...)
		} else {
			logger.Debug(ctx, "document computed", fields...)
		}
		return v, err
	}
}
