package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// SpanCompute is the name of the span wrapping a document computation.
const SpanCompute = "gqlcache.compute"

// CacheMeta identifies a cache instance in telemetry.
type CacheMeta struct {
	Name   string // Cache name (required)
	Policy string // Canonical policy string (optional)
}

// Attributes returns the attributes attached to every cache signal.
func (m CacheMeta) Attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("cache.name", m.Name)}
	if m.Policy != "" {
		attrs = append(attrs, attribute.String("cache.policy", m.Policy))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing for document computations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a compute span for query.
	StartSpan(ctx context.Context, meta CacheMeta, query string) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer backed by t.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NoopTracer()
	}
	return &tracerImpl{tracer: t}
}

// StartSpan starts a span carrying the cache identity and query size. The
// query text itself is not recorded.
func (t *tracerImpl) StartSpan(ctx context.Context, meta CacheMeta, query string) (context.Context, trace.Span) {
	attrs := append(meta.Attributes(),
		attribute.Int("graphql.document.length", len(query)),
		attribute.Bool("gqlcache.error", false),
	)
	return t.tracer.Start(ctx, SpanCompute,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("gqlcache.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, _ CacheMeta, _ string) (context.Context, trace.Span) {
	return t.noop.Start(ctx, SpanCompute)
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
