package observe_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/gqlcache/observe"
)

func ExampleNewObserver() {
	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "gqlcache",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	defer func() { _ = obs.Shutdown(ctx) }()

	_, span := obs.Tracer().Start(ctx, "parse")
	span.End()
	fmt.Println("recording:", span.SpanContext().IsValid())

	_, err = observe.NewObserver(ctx, observe.Config{})
	fmt.Println("missing name:", errors.Is(err, observe.ErrMissingServiceName))
	// Output:
	// recording: true
	// missing name: true
}

func ExampleNewLoggerWithWriter() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf).
		With(observe.Field{Key: "cache", Value: "queryCache"})

	logger.Debug(context.Background(), "dropped below info")
	logger.Warn(context.Background(), "query cache store failed",
		observe.Field{Key: "variables", Value: `{"password":"hunter2"}`},
	)

	out := buf.String()
	fmt.Println("entries:", strings.Count(out, "\n"))
	fmt.Println("variables redacted:", strings.Contains(out, `"variables":"[REDACTED]"`))
	// Output:
	// entries: 1
	// variables redacted: true
}

func ExampleWrap() {
	mw := observe.NewMiddleware(nil, nil, nil)

	parse := observe.Wrap(mw, observe.CacheMeta{Name: "queryCache"},
		func(_ context.Context, query string) (int, error) {
			return strings.Count(query, "{"), nil
		})

	depth, err := parse(context.Background(), "{ saying { id } }")
	fmt.Println(depth, err)
	// Output:
	// 2 <nil>
}
