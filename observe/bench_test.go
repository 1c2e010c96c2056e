package observe

import (
	"context"
	"io"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func benchMetrics(b *testing.B) Metrics {
	b.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	m, err := NewMetrics(mp.Meter("bench"))
	if err != nil {
		b.Fatal(err)
	}
	return m
}

func BenchmarkLogger(b *testing.B) {
	ctx := context.Background()
	b.Run("written", func(b *testing.B) {
		logger := NewLoggerWithWriter("debug", io.Discard)
		for i := 0; i < b.N; i++ {
			logger.Debug(ctx, "document computed", Field{Key: "query_length", Value: i})
		}
	})
	b.Run("filtered", func(b *testing.B) {
		logger := NewLoggerWithWriter("error", io.Discard)
		for i := 0; i < b.N; i++ {
			logger.Debug(ctx, "document computed", Field{Key: "query_length", Value: i})
		}
	})
}

func BenchmarkMetrics_RecordLookup(b *testing.B) {
	m := benchMetrics(b)
	meta := CacheMeta{Name: "queryCache", Policy: "maximumSize=1000"}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordLookup(ctx, meta, OutcomeHit)
	}
}

func BenchmarkWrap(b *testing.B) {
	tp := sdktrace.NewTracerProvider()
	mw := NewMiddleware(NewTracer(tp.Tracer("bench")), benchMetrics(b), NewLoggerWithWriter("info", io.Discard))
	parse := Wrap(mw, CacheMeta{Name: "queryCache"}, func(context.Context, string) (time.Duration, error) {
		return 0, nil
	})
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = parse(ctx, "{ saying { id } }")
		}
	})
}
