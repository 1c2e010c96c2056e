package observe

import "errors"

var (
	ErrMissingServiceName     = errors.New("observe: serviceName must be set")
	ErrInvalidSamplePct       = errors.New("observe: tracing.samplePct outside [0, 1]")
	ErrInvalidTracingExporter = errors.New("observe: unsupported tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: unsupported metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: unsupported log level")

	// ErrNilObserver is returned by MiddlewareFromObserver for a nil Observer.
	ErrNilObserver = errors.New("observe: nil observer")
)
