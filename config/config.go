// Package config loads planner settings from a file, the environment and
// command-line flags, in increasing order of precedence.
package config

import (
	"fedplan/catalog"
	"fedplan/plancache"
	"fedplan/planner"
	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"strings"
	"time"
)

const EnvPrefix = "FEDPLAN"

type Config struct {
	Integrations       []Integration `mapstructure:"integrations"`
	IntegrationNames   []string      `mapstructure:"integration_names"`
	DefaultNamespace   string        `mapstructure:"default_namespace"`
	PredictorNamespace string        `mapstructure:"predictor_namespace"`
	MaxDepth           int           `mapstructure:"max_depth"`
	Cache              CacheConfig   `mapstructure:"cache"`
	Server             ServerConfig  `mapstructure:"server"`
}

type Integration struct {
	Name   string `mapstructure:"name"`
	Type   string `mapstructure:"type"`
	Engine string `mapstructure:"engine"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	Cleanup time.Duration `mapstructure:"cleanup"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// RegisterFlags installs the flags Load binds to.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (yaml, json or toml)")
	fs.StringSlice("integration", nil, "data integration name, may be repeated")
	fs.String("default-namespace", "", "integration used for unqualified table names")
	fs.String("predictor-namespace", catalog.DefaultPredictorNamespace, "namespace holding predictors")
	fs.Int("max-depth", planner.DefaultMaxDepth, "maximum subquery nesting")
	fs.Bool("cache", true, "cache plans")
	fs.Duration("cache-ttl", plancache.DefaultExpiration, "how long cached plans are kept")
	fs.String("addr", ":8080", "address the HTTP server listens on")
}

var flagKeys = map[string]string{
	"integration":         "integration_names",
	"default-namespace":   "default_namespace",
	"predictor-namespace": "predictor_namespace",
	"max-depth":           "max_depth",
	"cache":               "cache.enabled",
	"cache-ttl":           "cache.ttl",
	"addr":                "server.addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("predictor_namespace", catalog.DefaultPredictorNamespace)
	v.SetDefault("max_depth", planner.DefaultMaxDepth)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", plancache.DefaultExpiration)
	v.SetDefault("cache.cleanup", plancache.DefaultCleanup)
	v.SetDefault("server.addr", ":8080")
}

// Load reads the config. fs may be nil; flags registered with RegisterFlags
// override the file and the environment when set.
func Load(v *viper.Viper, fs *pflag.FlagSet) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "bind flag %s", flag)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
	}
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", v.ConfigFileUsed())
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.MaxDepth <= 0 {
		return errors.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	for _, it := range c.Integrations {
		if it.Name == "" {
			return errors.New("integration without a name")
		}
		if _, err := catalog.ParseIntegrationType(it.Type); err != nil {
			return errors.Wrapf(err, "integration %s", it.Name)
		}
	}
	return nil
}

// Catalog builds the integration registry described by the config.
func (c *Config) Catalog() *catalog.Catalog {
	ct := catalog.NewCatalog(c.IntegrationNames...)
	for _, it := range c.Integrations {
		typ, _ := catalog.ParseIntegrationType(it.Type)
		ct.Add(catalog.Integration{Name: it.Name, Type: typ, Engine: it.Engine})
	}
	ct.DefaultNamespace = c.DefaultNamespace
	ct.PredictorNamespace = c.PredictorNamespace
	return ct
}

func (c *Config) PlannerOptions() []planner.Option {
	return []planner.Option{planner.WithMaxDepth(c.MaxDepth)}
}
