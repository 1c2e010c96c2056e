package main

import (
	"context"
	"net/http"
	"time"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/gqlcache/cache"
	"github.com/jonwraymond/gqlcache/config"
	"github.com/jonwraymond/gqlcache/graphql"
	"github.com/jonwraymond/gqlcache/health"
	"github.com/jonwraymond/gqlcache/internal/hello"
	"github.com/jonwraymond/gqlcache/observe"
	"github.com/jonwraymond/gqlcache/resilience"
)

const queryCacheName = "queryCache"

type server struct {
	http *http.Server
	docs *cache.Cache[*graphql.Document]
}

// newServer wires the schema, query cache, GraphQL handler and health
// checks into an HTTP server. The embedded greeting schema is always
// loaded; configured schema files extend it.
func newServer(ctx context.Context, cfg *config.Config, obs observe.Observer) (*server, error) {
	logger := obs.Logger()

	policy, err := cfg.GraphQL.Policy()
	if err != nil {
		return nil, errors.Wrap(err, "graphql.queryCache")
	}

	files, err := graphql.ReadSchemaFiles(ctx, logger, cfg.GraphQL.Schemas()...)
	if err != nil {
		return nil, err
	}
	schema, err := graphql.ParseSchema(append([]*ast.Source{hello.Schema()}, files...)...)
	if err != nil {
		return nil, err
	}
	compiler, err := graphql.NewCompiler(schema)
	if err != nil {
		return nil, err
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, errors.Wrap(err, "creating cache telemetry")
	}
	docs, err := cache.New[*graphql.Document](policy,
		cache.WithName(queryCacheName),
		cache.WithMiddleware(mw),
		cache.WithWeigher[*graphql.Document](graphql.Weight),
		cache.WithBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.Cache.BreakerMaxFailures,
			ResetTimeout: cfg.Cache.BreakerResetTimeout,
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating query cache")
	}

	greeter, err := hello.NewGreeter(cfg.Hello.Template, cfg.Hello.DefaultName)
	if err != nil {
		_ = docs.Close()
		return nil, err
	}
	gql, err := graphql.NewHandler(docs, compiler, hello.NewExecutor(greeter),
		graphql.WithHandlerLogger(logger),
		graphql.WithTracing(cfg.GraphQL.EnableTracing),
		graphql.WithMaxBodyBytes(cfg.GraphQL.MaxBodyBytes),
		graphql.WithInstrumentation(graphql.SpanInstrumentation(obs.Tracer())),
	)
	if err != nil {
		_ = docs.Close()
		return nil, err
	}

	checks := health.NewRegistry(0)
	checks.Add(health.NewCacheChecker(docs))

	mux := http.NewServeMux()
	mux.Handle("/graphql", gql)
	mux.Handle("/schema.json", gql)
	mux.Handle("/hello-world", hello.NewResource(greeter, logger))
	health.RegisterHandlers(mux, checks)
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return &server{
		http: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		docs: docs,
	}, nil
}

func (s *server) shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if cerr := s.docs.Close(); err == nil {
		err = cerr
	}
	return err
}
