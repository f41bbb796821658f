package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"go.yaml.in/yaml/v3"

	"github.com/matzehuels/depflow/internal/config"
	"github.com/matzehuels/depflow/pkg/cache"
	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/deps/resolvers"
	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/manifest"
	"github.com/matzehuels/depflow/pkg/vcs"
)

// appName is the application name used for directories and display.
const appName = "depflow"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	verbose    bool
	configFile string
	projectDir string
	noCache    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:     newLogger(w, level),
		projectDir: ".",
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Workspace
// =============================================================================

// workspace is everything a command needs to resolve the project in
// projectDir: the loaded config, an open cache and the project context.
type workspace struct {
	cfg      *config.Config
	cache    cache.Cache
	manifest *manifest.Manifest
	project  *deps.Project
}

func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(config.LoadOptions{File: c.configFile})
}

// openWorkspace loads config and the project manifest. A directory without
// a manifest is treated as a project with default conventions and no
// dependencies.
func (c *CLI) openWorkspace(ctx context.Context) (*workspace, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := cfg.OpenCache(ctx, c.noCache)
	if err != nil {
		return nil, err
	}

	m, err := manifest.LoadDir(c.projectDir)
	switch {
	case errors.Is(err, errors.ErrCodeFileNotFound):
		loggerFromContext(ctx).Debug("no manifest found", "dir", c.projectDir)
		m = &manifest.Manifest{}
	case err != nil:
		store.Close()
		return nil, err
	}

	project := &deps.Project{
		Git:           vcs.DefaultGitConfig(),
		CurrentBranch: vcs.CurrentBranch(c.projectDir),
		Repos:         cfg.Registry(store),
		Resolvers:     resolvers.NewRegistry(),
		Logger:        loggerFromContext(ctx),
	}
	if err := project.ApplyManifest(m); err != nil {
		store.Close()
		return nil, err
	}
	loggerFromContext(ctx).Debug("project loaded", "dir", c.projectDir, "branch", project.CurrentBranch)

	return &workspace{cfg: cfg, cache: store, manifest: m, project: project}, nil
}

func (w *workspace) Close() error {
	return w.cache.Close()
}

// declared returns the dependencies to work on: those listed in file when
// given, otherwise the manifest's.
func (w *workspace) declared(file string) ([]deps.Dependency, error) {
	decls := w.manifest.Project.Dependencies
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "dependency file %s", file)
			}
			return nil, err
		}
		decls = nil
		if err := yaml.Unmarshal(data, &decls); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parsing %s", file)
		}
	}
	return deps.ParseDependencies(decls)
}
