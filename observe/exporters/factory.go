// Package exporters builds the OpenTelemetry span exporters and metric
// readers named in observe.Config.
//
// The otlp and jaeger exporters read their endpoint from the standard
// OTEL_EXPORTER_* environment variables and refuse to start without one.
package exporters

import (
	"context"
	"fmt"
	"io"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type settings struct {
	out io.Writer
	reg promclient.Registerer
}

// Option customizes exporter construction.
type Option func(*settings)

// WithWriter sets where the stdout exporters write. Default: os.Stdout
func WithWriter(w io.Writer) Option {
	return func(s *settings) { s.out = w }
}

// WithRegisterer sets the registry the prometheus reader registers its
// collector with. Default: prometheus.DefaultRegisterer, which
// promhttp.Handler serves.
func WithRegisterer(reg promclient.Registerer) Option {
	return func(s *settings) { s.reg = reg }
}

func newSettings(opts []Option) *settings {
	s := &settings{out: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTracingExporter returns the span exporter called name: stdout, otlp,
// jaeger or none. The none exporter discards spans.
func NewTracingExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	s := newSettings(opts)
	switch name {
	case "none", "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(s.out))
	case "otlp":
		if err := requireEnv("otlp traces", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	case "jaeger":
		// Jaeger accepts OTLP, so only the endpoint variable differs.
		if err := requireEnv("jaeger", "OTEL_EXPORTER_JAEGER_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	}
	return nil, fmt.Errorf("unknown tracing exporter %q", name)
}

// NewMetricsReader returns the metric reader called name: stdout, otlp,
// prometheus or none. Push exporters are wrapped in a periodic reader.
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	s := newSettings(opts)

	var (
		exp sdkmetric.Exporter
		err error
	)
	switch name {
	case "none", "":
		exp, err = stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
	case "stdout":
		exp, err = stdoutmetric.New(stdoutmetric.WithWriter(s.out))
	case "otlp":
		if err := requireEnv("otlp metrics", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		exp, err = otlpmetricgrpc.New(ctx)
	case "prometheus":
		return newPrometheusReader(s.reg)
	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s metrics exporter: %w", name, err)
	}
	return sdkmetric.NewPeriodicReader(exp), nil
}

func newPrometheusReader(reg promclient.Registerer) (sdkmetric.Reader, error) {
	var opts []prometheus.Option
	if reg != nil {
		opts = append(opts, prometheus.WithRegisterer(reg))
	}
	r, err := prometheus.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("prometheus metrics exporter: %w", err)
	}
	return r, nil
}

// requireEnv fails unless one of keys is set.
func requireEnv(what string, keys ...string) error {
	for _, k := range keys {
		if os.Getenv(k) != "" {
			return nil
		}
	}
	return fmt.Errorf("%s endpoint not configured: set %v", what, keys)
}
