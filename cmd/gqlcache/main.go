// Command gqlcache serves GraphQL over HTTP with compiled queries held in a
// bounded query cache.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/gqlcache/config"
	"github.com/jonwraymond/gqlcache/observe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gqlcache",
		Short:         "GraphQL server with a prepared query cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL HTTP server",
		Long: `Run the GraphQL HTTP server.

Settings come from the --config file, GQLCACHE_* environment variables and
flags, each overriding the one before. The query cache is configured with
graphql.queryCache, a spec such as "maximumSize=10000,expireAfterAccess=1h".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.New(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	config.RegisterFlags(serve.Flags())

	root.AddCommand(serve, &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "gqlcache", version)
		},
	})
	return root
}

// run serves until ctx is done, then shuts down within the configured
// timeout.
func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Observe.Version == "" || cfg.Observe.Version == "dev" {
		cfg.Observe.Version = version
	}
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return errors.Wrap(err, "setting up telemetry")
	}
	logger := obs.Logger()

	srv, err := newServer(ctx, cfg, obs)
	if err != nil {
		_ = obs.Shutdown(context.Background())
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "gqlcache listening",
			observe.Field{Key: "addr", Value: cfg.Server.Addr},
			observe.Field{Key: "queryCache", Value: srv.docs.Policy().Describe()},
		)
		errCh <- srv.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = srv.shutdown(context.Background())
			_ = obs.Shutdown(context.Background())
			return errors.Wrap(err, "serving HTTP")
		}
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	err = srv.shutdown(shutdownCtx)
	if oerr := obs.Shutdown(shutdownCtx); err == nil {
		err = oerr
	}
	return err
}
