// Package config loads depflow's tool configuration.
//
// Settings come from $XDG_CONFIG_HOME/depflow/config.yaml (or the file given
// with --config) and are overridden by DEPFLOW_* environment variables, e.g.
// DEPFLOW_GITHUB_TOKEN or DEPFLOW_CACHE_BACKEND. GITHUB_TOKEN is honored as a
// fallback for the GitHub token.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/matzehuels/depflow/pkg/cache"
	"github.com/matzehuels/depflow/pkg/integrations/azuredevops"
	"github.com/matzehuels/depflow/pkg/integrations/github"
	"github.com/matzehuels/depflow/pkg/vcs"
)

const (
	AppName   = "depflow"
	EnvPrefix = "DEPFLOW"

	fileName = "config"
	fileType = "yaml"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// DefaultCacheTTL bounds how long immutable API responses are kept.
const DefaultCacheTTL = 7 * 24 * time.Hour

// DefaultAPIAddr is where `depflow serve` listens by default.
const DefaultAPIAddr = "127.0.0.1:8080"

type Config struct {
	GitHub      GitHub      `mapstructure:"github"`
	AzureDevOps AzureDevOps `mapstructure:"azure_devops"`
	Cache       Cache       `mapstructure:"cache"`
	API         API         `mapstructure:"api"`
}

type GitHub struct {
	Token   string   `mapstructure:"token"`
	BaseURL string   `mapstructure:"base_url"`
	Hosts   []string `mapstructure:"hosts"`
}

type AzureDevOps struct {
	Token           string `mapstructure:"token"`
	OrganizationURL string `mapstructure:"organization_url"`
}

type Cache struct {
	Backend string        `mapstructure:"backend"`
	Dir     string        `mapstructure:"dir"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   Redis         `mapstructure:"redis"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type API struct {
	Addr string `mapstructure:"addr"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		GitHub: GitHub{BaseURL: github.DefaultBaseURL},
		Cache: Cache{
			Backend: BackendFile,
			Dir:     cache.DefaultDir(),
			TTL:     DefaultCacheTTL,
			Redis:   Redis{Addr: "localhost:6379", Prefix: cache.DefaultRedisPrefix},
		},
		API: API{Addr: DefaultAPIAddr},
	}
}

// Dir returns the configuration directory, $XDG_CONFIG_HOME/depflow or
// ~/.config/depflow.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// LoadOptions selects where configuration is read from.
type LoadOptions struct {
	// File is an explicit config file. It must exist.
	File string
	// Dir overrides [Dir] when File is empty.
	Dir string
}

// Load reads the configuration file, if any, and applies environment
// overrides on top of the defaults.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetConfigType(fileType)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github.token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, err
	}

	switch {
	case opts.File != "":
		if _, err := os.Stat(opts.File); err != nil {
			return nil, fmt.Errorf("config file not found: %s", opts.File)
		}
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", opts.File, err)
		}
	default:
		dir := opts.Dir
		if dir == "" {
			var err error
			if dir, err = Dir(); err != nil {
				return nil, err
			}
		}
		v.AddConfigPath(dir)
		v.SetConfigName(fileName)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config in %s: %w", dir, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("github.token", d.GitHub.Token)
	v.SetDefault("github.base_url", d.GitHub.BaseURL)
	v.SetDefault("github.hosts", d.GitHub.Hosts)
	v.SetDefault("azure_devops.token", d.AzureDevOps.Token)
	v.SetDefault("azure_devops.organization_url", d.AzureDevOps.OrganizationURL)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("cache.redis.prefix", d.Cache.Redis.Prefix)
	v.SetDefault("api.addr", d.API.Addr)
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return fmt.Errorf("cache.backend must be one of %s, %s, %s: got %q", BackendFile, BackendRedis, BackendNone, c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}

// OpenCache opens the configured cache backend. noCache forces the null
// cache.
func (c *Config) OpenCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Cache.Redis.Addr,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
			Prefix:   c.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		fc, err := cache.NewFileCache(c.Cache.Dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	}
}

// Registry returns a VCS registry with the GitHub and Azure DevOps
// providers, both caching through shared.
func (c *Config) Registry(shared cache.Cache) *vcs.Registry {
	return vcs.NewRegistry(
		github.NewProvider(github.Config{
			Token:   c.GitHub.Token,
			BaseURL: c.GitHub.BaseURL,
			Hosts:   c.GitHub.Hosts,
			Cache:   shared,
			TTL:     c.Cache.TTL,
		}),
		azuredevops.NewProvider(azuredevops.Config{
			Token:           c.AzureDevOps.Token,
			OrganizationURL: c.AzureDevOps.OrganizationURL,
			Cache:           shared,
			TTL:             c.Cache.TTL,
		}),
	)
}
