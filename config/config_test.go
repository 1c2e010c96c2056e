package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/gqlcache/cache"
	"github.com/jonwraymond/gqlcache/observe"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func load(t *testing.T, fs *pflag.FlagSet) *Config {
	t.Helper()
	v, err := New(fs)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg := load(t, nil)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.GraphQL.QueryCache)
	assert.True(t, cfg.GraphQL.EnableTracing)
	assert.Equal(t, int64(1<<20), cfg.GraphQL.MaxBodyBytes)
	assert.Equal(t, 5, cfg.Cache.BreakerMaxFailures)
	assert.Equal(t, 30*time.Second, cfg.Cache.BreakerResetTimeout)
	assert.Equal(t, "gqlcache", cfg.Observe.ServiceName)
	assert.Equal(t, "prometheus", cfg.Observe.Metrics.Exporter)
	assert.Equal(t, "Hello, %s!", cfg.Hello.Template)
	assert.Equal(t, "Stranger", cfg.Hello.DefaultName)

	p, err := cfg.GraphQL.Policy()
	require.NoError(t, err)
	assert.False(t, p.ShouldCache(), "an empty queryCache disables caching")
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "gqlcache.yaml", `
server:
  addr: ":9090"
  shutdownTimeout: 3s
graphql:
  schemaFile: legacy.graphql
  schemaFiles:
    - a.graphql
    - b.graphql
  queryCache: maximumSize=10000,expireAfterAccess=1h
  enableTracing: false
cache:
  breakerMaxFailures: 2
observe:
  logging:
    level: debug
hello:
  template: "Hey %s."
`)
	cfg := load(t, newFlags(t, "--config", path))

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"a.graphql", "b.graphql", "legacy.graphql"}, cfg.GraphQL.Schemas())
	assert.False(t, cfg.GraphQL.EnableTracing)
	assert.Equal(t, 2, cfg.Cache.BreakerMaxFailures)
	assert.Equal(t, "debug", cfg.Observe.Logging.Level)
	assert.Equal(t, "Hey %s.", cfg.Hello.Template)
	assert.Equal(t, "Stranger", cfg.Hello.DefaultName)

	p, err := cfg.GraphQL.Policy()
	require.NoError(t, err)
	assert.Equal(t, cache.Policy{MaximumSize: 10000, ExpireAfterAccess: time.Hour}, p)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "gqlcache.json", `{"graphql": {"queryCache": "maximumSize=10"}}`)
	t.Setenv("GQLCACHE_GRAPHQL_QUERYCACHE", "maximumWeight=64MiB")
	t.Setenv("GQLCACHE_SERVER_ADDR", "127.0.0.1:7000")

	cfg := load(t, newFlags(t, "--config", path))
	assert.Equal(t, "maximumWeight=64MiB", cfg.GraphQL.QueryCache)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("GQLCACHE_GRAPHQL_QUERYCACHE", "maximumSize=10")

	cfg := load(t, newFlags(t,
		"--query-cache", "maximumSize=20",
		"--addr", ":1234",
		"--schema", "x.graphql,y.graphql",
		"--tracing=false",
		"--log-level", "warn",
	))
	assert.Equal(t, "maximumSize=20", cfg.GraphQL.QueryCache)
	assert.Equal(t, ":1234", cfg.Server.Addr)
	assert.Equal(t, []string{"x.graphql", "y.graphql"}, cfg.GraphQL.SchemaFiles)
	assert.False(t, cfg.GraphQL.EnableTracing)
	assert.Equal(t, "warn", cfg.Observe.Logging.Level)
}

func TestNew_MissingConfigFile(t *testing.T) {
	_, err := New(newFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Addr: ":8080"},
			GraphQL: GraphQLConfig{QueryCache: "maximumSize=10", MaxBodyBytes: 1024},
			Observe: observe.Config{ServiceName: "gqlcache"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"bad cache spec", func(c *Config) { c.GraphQL.QueryCache = "maximumSize=ten" }, "graphql.queryCache"},
		{"size and weight", func(c *Config) { c.GraphQL.QueryCache = "maximumSize=1,maximumWeight=1" }, "graphql.queryCache"},
		{"no body limit", func(c *Config) { c.GraphQL.MaxBodyBytes = 0 }, "maxBodyBytes"},
		{"negative breaker", func(c *Config) { c.Cache.BreakerMaxFailures = -1 }, "breakerMaxFailures"},
		{"template without name", func(c *Config) { c.Hello.Template = "Welcome!" }, "hello.template"},
		{"template with int verb", func(c *Config) { c.Hello.Template = "Hello, %d" }, "hello.template"},
		{"no service name", func(c *Config) { c.Observe.ServiceName = "" }, "observe"},
		{
			"bad exporter",
			func(c *Config) { c.Observe.Metrics = observe.MetricsConfig{Enabled: true, Exporter: "statsd"} },
			"observe",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_BadQueryCacheIsInvalidPolicy(t *testing.T) {
	t.Setenv("GQLCACHE_GRAPHQL_QUERYCACHE", "expireAfterWrite=soon")
	v, err := New(nil)
	require.NoError(t, err)
	_, err = Load(v)
	assert.ErrorIs(t, err, cache.ErrInvalidPolicy)
}
