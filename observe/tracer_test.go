package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewTracer(tp.Tracer("test")), recorder
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[string]attribute.Value {
	m := make(map[string]attribute.Value)
	for _, a := range s.Attributes() {
		m[string(a.Key)] = a.Value
	}
	return m
}

// TestTracer_SpanAttributes verifies the compute span name and attributes.
func TestTracer_SpanAttributes(t *testing.T) {
	tr, recorder := newRecordingTracer()
	meta := CacheMeta{Name: "documents", Policy: "maximumSize=100"}

	_, span := tr.StartSpan(context.Background(), meta, "{ saying { id } }")
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != SpanCompute {
		t.Errorf("span name = %q, want %q", s.Name(), SpanCompute)
	}

	attrs := spanAttrs(s)
	if v := attrs["cache.name"]; v.AsString() != "documents" {
		t.Errorf("cache.name = %v", v)
	}
	if v := attrs["cache.policy"]; v.AsString() != "maximumSize=100" {
		t.Errorf("cache.policy = %v", v)
	}
	if v := attrs["graphql.document.length"]; v.AsInt64() != int64(len("{ saying { id } }")) {
		t.Errorf("graphql.document.length = %v", v)
	}
	if v, ok := attrs["gqlcache.error"]; !ok || v.AsBool() {
		t.Errorf("gqlcache.error = %v, want false", v)
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

// TestTracer_MinimalMeta verifies cache.policy is omitted when empty.
func TestTracer_MinimalMeta(t *testing.T) {
	tr, recorder := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), CacheMeta{Name: "documents"}, "")
	tr.EndSpan(span, nil)

	if _, ok := spanAttrs(recorder.Ended()[0])["cache.policy"]; ok {
		t.Error("cache.policy should be absent")
	}
}

// TestTracer_ContextPropagation verifies child spans parent to the compute span.
func TestTracer_ContextPropagation(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := NewTracer(tp.Tracer("test"))

	ctx, span := tr.StartSpan(context.Background(), CacheMeta{Name: "documents"}, "{ a }")
	_, child := tp.Tracer("test").Start(ctx, "parse")
	child.End()
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("child span is not parented to the compute span")
	}
}

// TestTracer_ErrorRecording verifies errors set status, attribute and event.
func TestTracer_ErrorRecording(t *testing.T) {
	tr, recorder := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), CacheMeta{Name: "documents"}, "{")
	tr.EndSpan(span, errors.New("syntax error"))

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	if s.Status().Description != "syntax error" {
		t.Errorf("status description = %q", s.Status().Description)
	}
	if v := spanAttrs(s)["gqlcache.error"]; !v.AsBool() {
		t.Error("gqlcache.error should be true")
	}
	if len(s.Events()) == 0 {
		t.Error("expected an exception event")
	}
}

func TestNewTracer_Nil(t *testing.T) {
	tr := NewTracer(nil)
	_, span := tr.StartSpan(context.Background(), CacheMeta{Name: "x"}, "")
	tr.EndSpan(span, nil)
}
