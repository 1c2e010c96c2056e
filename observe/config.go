package observe

import (
	"fmt"
	"sort"
	"strings"
)

// Config selects the telemetry backends for a process. Keys follow the
// camelCase names of the server's configuration file.
type Config struct {
	ServiceName string        `mapstructure:"serviceName"`
	Version     string        `mapstructure:"version"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// TracingConfig selects the span exporter and the share of root traces
// that are sampled.
type TracingConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Exporter  string  `mapstructure:"exporter"`
	SamplePct float64 `mapstructure:"samplePct"`
}

// MetricsConfig selects the metrics reader.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// LoggingConfig sets the minimum level written by the zap logger.
type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
}

// Accepted backend names. The empty name means "none".
var (
	tracingExporters = nameSet("otlp", "jaeger", "stdout", "none", "")
	metricsExporters = nameSet("otlp", "prometheus", "stdout", "none", "")
	logLevels        = nameSet("debug", "info", "warn", "error", "")
)

type names map[string]struct{}

func nameSet(ns ...string) names {
	s := make(names, len(ns))
	for _, n := range ns {
		s[n] = struct{}{}
	}
	return s
}

func (s names) has(n string) bool {
	_, ok := s[n]
	return ok
}

func (s names) String() string {
	out := make([]string, 0, len(s))
	for n := range s {
		if n != "" {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return strings.Join(out, "|")
}

// Validate checks the enabled subsystems. Settings of a disabled
// subsystem are ignored.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if t := c.Tracing; t.Enabled {
		if !tracingExporters.has(t.Exporter) {
			return fmt.Errorf("%w %q, want one of %s", ErrInvalidTracingExporter, t.Exporter, tracingExporters)
		}
		if t.SamplePct < 0 || t.SamplePct > 1 {
			return fmt.Errorf("%w: %g", ErrInvalidSamplePct, t.SamplePct)
		}
	}
	if m := c.Metrics; m.Enabled && !metricsExporters.has(m.Exporter) {
		return fmt.Errorf("%w %q, want one of %s", ErrInvalidMetricsExporter, m.Exporter, metricsExporters)
	}
	if l := c.Logging; l.Enabled && !logLevels.has(l.Level) {
		return fmt.Errorf("%w %q, want one of %s", ErrInvalidLogLevel, l.Level, logLevels)
	}
	return nil
}
