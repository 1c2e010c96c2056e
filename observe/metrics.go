package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Lookup outcomes reported by RecordLookup.
const (
	OutcomeHit      = "hit"
	OutcomeComputed = "computed"
	OutcomeShared   = "shared"
	OutcomeFallback = "fallback"
)

// Metrics records query cache activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup counts a completed lookup by outcome.
	RecordLookup(ctx context.Context, meta CacheMeta, outcome string)

	// RecordMiss counts a compute-once miss.
	RecordMiss(ctx context.Context, meta CacheMeta)

	// RecordFallback counts a lookup served by an uncached compute.
	RecordFallback(ctx context.Context, meta CacheMeta, reason string)

	// RecordEviction counts an entry leaving the store.
	RecordEviction(ctx context.Context, meta CacheMeta)

	// RecordCompute records how long a compute took.
	RecordCompute(ctx context.Context, meta CacheMeta, duration time.Duration, err error)

	// ObserveEntries reports entries() as the cache size gauge until the
	// returned function is called.
	ObserveEntries(meta CacheMeta, entries func() int) (unregister func() error, err error)
}

type metricsImpl struct {
	meter        metric.Meter
	lookups      metric.Int64Counter
	misses       metric.Int64Counter
	fallbacks    metric.Int64Counter
	evictions    metric.Int64Counter
	durationHist metric.Float64Histogram
	entries      metric.Int64ObservableGauge
}

// NewMetrics creates the cache instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookups, err := meter.Int64Counter(
		"gqlcache.lookups",
		metric.WithDescription("Query cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"gqlcache.misses",
		metric.WithDescription("Query cache misses that computed a document"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"gqlcache.fallbacks",
		metric.WithDescription("Lookups served by an uncached compute"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"gqlcache.evictions",
		metric.WithDescription("Entries removed from the query cache"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"gqlcache.compute.duration_ms",
		metric.WithDescription("Document compute duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	entries, err := meter.Int64ObservableGauge(
		"gqlcache.entries",
		metric.WithDescription("Documents currently held by the query cache"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		lookups:      lookups,
		misses:       misses,
		fallbacks:    fallbacks,
		evictions:    evictions,
		durationHist: durationHist,
		entries:      entries,
	}, nil
}

func (m *metricsImpl) RecordLookup(ctx context.Context, meta CacheMeta, outcome string) {
	attrs := append(meta.Attributes(), attribute.String("outcome", outcome))
	m.lookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordMiss(ctx context.Context, meta CacheMeta) {
	m.misses.Add(ctx, 1, metric.WithAttributes(meta.Attributes()...))
}

func (m *metricsImpl) RecordFallback(ctx context.Context, meta CacheMeta, reason string) {
	attrs := append(meta.Attributes(), attribute.String("reason", reason))
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordEviction(ctx context.Context, meta CacheMeta) {
	m.evictions.Add(ctx, 1, metric.WithAttributes(meta.Attributes()...))
}

func (m *metricsImpl) RecordCompute(ctx context.Context, meta CacheMeta, duration time.Duration, err error) {
	attrs := append(meta.Attributes(), attribute.Bool("error", err != nil))
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

func (m *metricsImpl) ObserveEntries(meta CacheMeta, entries func() int) (func() error, error) {
	opt := metric.WithAttributes(meta.Attributes()...)
	reg, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(m.entries, int64(entries()), opt)
		return nil
	}, m.entries)
	if err != nil {
		return nil, err
	}
	return reg.Unregister, nil
}

type noopMetrics struct{}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordLookup(context.Context, CacheMeta, string)                {}
func (noopMetrics) RecordMiss(context.Context, CacheMeta)                          {}
func (noopMetrics) RecordFallback(context.Context, CacheMeta, string)              {}
func (noopMetrics) RecordEviction(context.Context, CacheMeta)                      {}
func (noopMetrics) RecordCompute(context.Context, CacheMeta, time.Duration, error) {}
func (noopMetrics) ObserveEntries(CacheMeta, func() int) (func() error, error) {
	return func() error { return nil }, nil
}
