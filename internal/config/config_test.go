package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/depflow/pkg/cache"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	cfg, err := Load(LoadOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Backend != BackendFile || cfg.Cache.TTL != DefaultCacheTTL || cfg.API.Addr != DefaultAPIAddr {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("DEPFLOW_GITHUB_TOKEN", "")
	dir := t.TempDir()
	data := `github:
  token: file-token
azure_devops:
  organization_url: https://dev.azure.com/contoso
cache:
  backend: none
  ttl: 1h
api:
  addr: ":9000"
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(LoadOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHub.Token != "file-token" || cfg.AzureDevOps.OrganizationURL != "https://dev.azure.com/contoso" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Cache.Backend != BackendNone || cfg.Cache.TTL != time.Hour || cfg.API.Addr != ":9000" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DEPFLOW_GITHUB_TOKEN", "env-token")
	t.Setenv("DEPFLOW_CACHE_BACKEND", "redis")
	t.Setenv("DEPFLOW_CACHE_REDIS_ADDR", "redis:6379")
	t.Setenv("DEPFLOW_AZURE_DEVOPS_TOKEN", "ado")

	cfg, err := Load(LoadOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHub.Token != "env-token" || cfg.Cache.Backend != BackendRedis || cfg.Cache.Redis.Addr != "redis:6379" || cfg.AzureDevOps.Token != "ado" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadGitHubTokenFallback(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "gh")
	cfg, err := Load(LoadOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GitHub.Token != "gh" {
		t.Errorf("token = %q", cfg.GitHub.Token)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Error("expected missing explicit file to fail")
	}

	t.Setenv("DEPFLOW_CACHE_BACKEND", "memcached")
	if _, err := Load(LoadOptions{Dir: t.TempDir()}); err == nil {
		t.Error("expected unknown backend to fail")
	}
}

func TestOpenCache(t *testing.T) {
	cfg := Default()
	cfg.Cache.Dir = t.TempDir()

	c, err := cfg.OpenCache(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("cache = %T", c)
	}

	c, _ = cfg.OpenCache(context.Background(), true)
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("noCache = %T", c)
	}

	cfg.Cache.Backend = BackendNone
	c, _ = cfg.OpenCache(context.Background(), false)
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("none = %T", c)
	}
}

func TestRegistry(t *testing.T) {
	cfg := Default()
	reg := cfg.Registry(cache.NewNullCache())
	names := reg.Names()
	if len(names) != 2 || names[0] != "azure_devops" || names[1] != "github" {
		t.Errorf("names = %v", names)
	}
	if _, err := reg.Provider("", "https://dev.azure.com/org/proj/_git/repo"); err != nil {
		t.Errorf("azure url: %v", err)
	}
	if _, err := reg.Provider("", "https://github.com/a/b"); err != nil {
		t.Errorf("github url: %v", err)
	}
}
