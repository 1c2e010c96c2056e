package graphql

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/gqlcache/cache"
)

// Instrumentation observes the compile and execute phases of a request.
// Each Begin method returns the context the phase runs with and a func the
// Handler calls when the phase ends. The returned func may be nil.
type Instrumentation interface {
	// BeginCompile is called before the document for query is looked up.
	// The end func receives the document, or the lookup error, and how it
	// was obtained.
	BeginCompile(ctx context.Context, query string) (context.Context, func(doc *Document, source cache.Source, err error))

	// BeginExecute is called before op is handed to the Executor.
	BeginExecute(ctx context.Context, op *Operation) (context.Context, func(res *Response))
}

// ChainInstrumentation combines ins into one Instrumentation. Phases begin
// in the order given and end in reverse. Nil entries are skipped.
func ChainInstrumentation(ins ...Instrumentation) Instrumentation {
	var chain chainedInstrumentation
	for _, in := range ins {
		switch in := in.(type) {
		case nil:
		case chainedInstrumentation:
			chain = append(chain, in...)
		default:
			chain = append(chain, in)
		}
	}
	return chain
}

type chainedInstrumentation []Instrumentation

func (c chainedInstrumentation) BeginCompile(ctx context.Context, query string) (context.Context, func(*Document, cache.Source, error)) {
	ends := make([]func(*Document, cache.Source, error), 0, len(c))
	for _, in := range c {
		var end func(*Document, cache.Source, error)
		ctx, end = in.BeginCompile(ctx, query)
		if end != nil {
			ends = append(ends, end)
		}
	}
	return ctx, func(doc *Document, source cache.Source, err error) {
		for i := len(ends) - 1; i >= 0; i-- {
			ends[i](doc, source, err)
		}
	}
}

func (c chainedInstrumentation) BeginExecute(ctx context.Context, op *Operation) (context.Context, func(*Response)) {
	ends := make([]func(*Response), 0, len(c))
	for _, in := range c {
		var end func(*Response)
		ctx, end = in.BeginExecute(ctx, op)
		if end != nil {
			ends = append(ends, end)
		}
	}
	return ctx, func(res *Response) {
		for i := len(ends) - 1; i >= 0; i-- {
			ends[i](res)
		}
	}
}

// Span names of SpanInstrumentation.
const (
	SpanCompile = "graphql.compile"
	SpanExecute = "graphql.execute"
)

type spanInstrumentation struct {
	tracer trace.Tracer
}

// SpanInstrumentation records an OpenTelemetry span for each compile and
// execute phase. Query text and variables are never recorded.
func SpanInstrumentation(t trace.Tracer) Instrumentation {
	return spanInstrumentation{tracer: t}
}

func (s spanInstrumentation) BeginCompile(ctx context.Context, query string) (context.Context, func(*Document, cache.Source, error)) {
	ctx, span := s.tracer.Start(ctx, SpanCompile,
		trace.WithAttributes(attribute.Int("graphql.document.length", len(query))),
	)
	return ctx, func(doc *Document, source cache.Source, err error) {
		span.SetAttributes(attribute.String("gqlcache.source", source.String()))
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case !doc.Valid():
			span.SetStatus(codes.Error, "invalid document")
		default:
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

func (s spanInstrumentation) BeginExecute(ctx context.Context, op *Operation) (context.Context, func(*Response)) {
	ctx, span := s.tracer.Start(ctx, SpanExecute, trace.WithAttributes(
		attribute.String("graphql.operation.type", string(op.Definition.Operation)),
		attribute.String("graphql.operation.name", op.Definition.Name),
	))
	return ctx, func(res *Response) {
		if res != nil && len(res.Errors) > 0 {
			span.SetAttributes(attribute.Int("graphql.errors", len(res.Errors)))
			span.SetStatus(codes.Error, res.Errors[0].Message)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
