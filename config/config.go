// Package config loads the server configuration from a file, GQLCACHE_*
// environment variables and command line flags, in increasing order of
// precedence.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jonwraymond/gqlcache/cache"
	"github.com/jonwraymond/gqlcache/graphql"
	"github.com/jonwraymond/gqlcache/internal/hello"
	"github.com/jonwraymond/gqlcache/observe"
)

// EnvPrefix prefixes every environment variable. Nested keys are joined
// with underscores, so graphql.queryCache is GQLCACHE_GRAPHQL_QUERYCACHE.
const EnvPrefix = "GQLCACHE"

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	GraphQL GraphQLConfig  `mapstructure:"graphql"`
	Cache   CacheConfig    `mapstructure:"cache"`
	Observe observe.Config `mapstructure:"observe"`
	Hello   HelloConfig    `mapstructure:"hello"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// GraphQLConfig configures the GraphQL endpoint.
type GraphQLConfig struct {
	// SchemaFile is deprecated. It is appended to SchemaFiles.
	SchemaFile    string   `mapstructure:"schemaFile"`
	SchemaFiles   []string `mapstructure:"schemaFiles"`
	QueryCache    string   `mapstructure:"queryCache"`
	EnableTracing bool     `mapstructure:"enableTracing"`
	MaxBodyBytes  int64    `mapstructure:"maxBodyBytes"`
}

// CacheConfig configures the circuit breaker guarding the query cache's
// store.
type CacheConfig struct {
	BreakerMaxFailures  int           `mapstructure:"breakerMaxFailures"`
	BreakerResetTimeout time.Duration `mapstructure:"breakerResetTimeout"`
}

// HelloConfig configures the greeting service.
type HelloConfig struct {
	Template    string `mapstructure:"template"`
	DefaultName string `mapstructure:"defaultName"`
}

// Schemas returns the schema files to load, the deprecated SchemaFile
// included.
func (c GraphQLConfig) Schemas() []string {
	return graphql.SchemaFiles(c.SchemaFile, c.SchemaFiles)
}

// Policy parses QueryCache. An empty spec disables the cache.
func (c GraphQLConfig) Policy() (cache.Policy, error) {
	return cache.ParsePolicy(c.QueryCache)
}

var defaults = map[string]interface{}{
	"server.addr":            ":8080",
	"server.shutdownTimeout": 10 * time.Second,

	"graphql.schemaFile":    "",
	"graphql.schemaFiles":   []string{},
	"graphql.queryCache":    "",
	"graphql.enableTracing": true,
	"graphql.maxBodyBytes":  graphql.DefaultMaxBodyBytes,

	"cache.breakerMaxFailures":  5,
	"cache.breakerResetTimeout": 30 * time.Second,

	"observe.serviceName":       "gqlcache",
	"observe.version":           "dev",
	"observe.tracing.enabled":   false,
	"observe.tracing.exporter":  "none",
	"observe.tracing.samplePct": 1.0,
	"observe.metrics.enabled":   true,
	"observe.metrics.exporter":  "prometheus",
	"observe.logging.enabled":   true,
	"observe.logging.level":     "info",

	"hello.template":    hello.DefaultTemplate,
	"hello.defaultName": hello.DefaultName,
}

// flags maps command line flags to the keys they override.
var flags = []struct {
	name, key, usage string
}{
	{"addr", "server.addr", "Address the HTTP server listens on."},
	{"schema", "graphql.schemaFiles", "GraphQL schema files. The embedded greeting schema is served when none is given."},
	{"query-cache", "graphql.queryCache", `Query cache spec, e.g. "maximumSize=10000,expireAfterAccess=1h". Empty disables caching.`},
	{"tracing", "graphql.enableTracing", "Add request timing to GraphQL responses."},
	{"log-level", "observe.logging.level", "Log level: debug, info, warn or error."},
}

// RegisterFlags adds the server flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "",
		"Configuration file. Takes precedence over default values, but is "+
			"overridden by environment variables and flags.")
	for _, f := range flags {
		switch def := defaults[f.key].(type) {
		case string:
			fs.String(f.name, def, f.usage)
		case bool:
			fs.Bool(f.name, def, f.usage)
		case []string:
			fs.StringSlice(f.name, def, f.usage)
		}
	}
}

// New returns a viper instance with defaults, environment bindings and the
// flags registered by RegisterFlags. fs may be nil. A non-empty config
// file in fs is read.
func New(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	for key, def := range defaults {
		v.SetDefault(key, def)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs == nil {
		return v, nil
	}
	for _, f := range flags {
		if pf := fs.Lookup(f.name); pf != nil {
			if err := v.BindPFlag(f.key, pf); err != nil {
				return nil, errors.Wrapf(err, "binding flag %s", f.name)
			}
		}
	}

	if cf := fs.Lookup("config"); cf != nil && cf.Value.String() != "" {
		v.SetConfigFile(cf.Value.String())
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "reading config")
		}
	}
	return v, nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the query cache spec, the greeting template and the
// observability settings.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if _, err := c.GraphQL.Policy(); err != nil {
		return errors.Wrap(err, "config: graphql.queryCache")
	}
	if c.GraphQL.MaxBodyBytes <= 0 {
		return errors.Errorf("config: graphql.maxBodyBytes must be positive, got %d", c.GraphQL.MaxBodyBytes)
	}
	if c.Hello.Template != "" {
		if err := hello.ValidateTemplate(c.Hello.Template); err != nil {
			return errors.Wrap(err, "config: hello.template")
		}
	}
	if c.Cache.BreakerMaxFailures < 0 {
		return errors.Errorf("config: cache.breakerMaxFailures must not be negative, got %d", c.Cache.BreakerMaxFailures)
	}
	if err := c.Observe.Validate(); err != nil {
		return errors.Wrap(err, "config: observe")
	}
	return nil
}
