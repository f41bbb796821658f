package deps

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depflow/pkg/vcs"
	"github.com/matzehuels/depflow/pkg/version"
)

// Kind identifies a dependency variant.
type Kind string

const (
	KindPackageVersion      Kind = "package_version"
	KindPackageVersionID    Kind = "package_version_id"
	KindUnmanagedRef        Kind = "unmanaged_ref"
	KindUnmanagedZip        Kind = "unmanaged_zip"
	KindUnmanagedFlow       Kind = "unmanaged_flow"
	KindVcsDynamic          Kind = "vcs_dynamic"
	KindVcsDynamicSubfolder Kind = "vcs_dynamic_subfolder"
)

// Dependency is any declared or derived dependency.
type Dependency interface {
	// Name is a short human-readable label, e.g. "Install foo 1.0".
	Name() string
	Description() string
	Kind() Kind
	// Key identifies the dependency structurally. Two dependencies with
	// the same key are duplicates.
	Key() string
}

// StaticDependency is immediately installable.
type StaticDependency interface {
	Dependency
	// Install installs the dependency into target through the project's
	// installer. opts may be nil.
	Install(ctx context.Context, project *Project, target Target, opts *InstallOptions) error
}

// DynamicDependency needs resolution before it can be flattened into
// static dependencies.
type DynamicDependency interface {
	Dependency
	// Resolve runs the strategy pipeline once. Later calls are no-ops.
	Resolve(ctx context.Context, project *Project, strategies []Strategy) error
	IsResolved() bool
	// Flatten expands a resolved dependency one level. The result may
	// contain unresolved dynamic dependencies declared by the referenced
	// repository; use the package-level [Flatten] to expand fully.
	Flatten(ctx context.Context, project *Project) ([]Dependency, error)
}

// Target is an environment packages are installed into.
type Target interface {
	Name() string
	// InstalledPackages reports what is installed, indexed by namespace
	// and by version id.
	InstalledPackages(ctx context.Context) (Installed, error)
}

// InstalledPackage is one package present on a target.
type InstalledPackage struct {
	Namespace string       `json:"namespace" toml:"namespace"`
	Version   version.Info `json:"version" toml:"version"`
}

// Installed indexes installed package versions by namespace and by version id.
type Installed map[string][]version.Info

// IndexInstalled builds an [Installed] index from a package list.
func IndexInstalled(pkgs []InstalledPackage) Installed {
	idx := make(Installed)
	for _, p := range pkgs {
		if p.Namespace != "" {
			idx[p.Namespace] = append(idx[p.Namespace], p.Version)
		}
		if p.Version.ID != "" {
			idx[p.Version.ID] = append(idx[p.Version.ID], p.Version)
		}
	}
	return idx
}

// Has reports whether key (a namespace or version id) is installed.
func (i Installed) Has(key string) bool {
	return len(i[key]) > 0
}

// Satisfies reports whether some installed version of namespace is at
// least v.
func (i Installed) Satisfies(namespace string, v version.Version) bool {
	for _, info := range i[namespace] {
		if info.Number.AtLeast(v) {
			return true
		}
	}
	return false
}

// InstallOptions are passed to the installer for package installs.
type InstallOptions struct {
	ActivateRemoteSiteSettings bool   `json:"activate_remote_site_settings"`
	NameConflictResolution     string `json:"name_conflict_resolution"`
	Password                   string `json:"password,omitempty"`
	SecurityType               string `json:"security_type"`
}

// DefaultInstallOptions returns the options used when none are given.
func DefaultInstallOptions() InstallOptions {
	return InstallOptions{
		ActivateRemoteSiteSettings: true,
		NameConflictResolution:     "Block",
		SecurityType:               "FULL",
	}
}

// RetryOptions control how the installer retries a failed package install.
type RetryOptions struct {
	Retries          int           `json:"retries"`
	RetryInterval    time.Duration `json:"retry_interval"`
	RetryIntervalAdd time.Duration `json:"retry_interval_add"`
}

// DefaultRetryOptions is passed with every package install.
var DefaultRetryOptions = RetryOptions{
	Retries:          20,
	RetryInterval:    5 * time.Second,
	RetryIntervalAdd: 30 * time.Second,
}

// DeployOptions control how unmanaged metadata is deployed.
type DeployOptions struct {
	Unmanaged       bool   `json:"unmanaged"`
	NamespaceInject string `json:"namespace_inject,omitempty"`
	NamespaceStrip  string `json:"namespace_strip,omitempty"`
}

// MetadataSource locates unmanaged metadata: either a repository ref or a
// zip archive URL, optionally narrowed to a subfolder.
type MetadataSource struct {
	VCS       string `json:"vcs,omitempty"`
	RepoURL   string `json:"url,omitempty"`
	Ref       string `json:"ref,omitempty"`
	ZipURL    string `json:"zip_url,omitempty"`
	Subfolder string `json:"subfolder,omitempty"`
}

// FlowSource locates a flow to run from a repository commit.
type FlowSource struct {
	VCS      string `json:"vcs"`
	RepoURL  string `json:"url"`
	Commit   string `json:"commit"`
	FlowName string `json:"flow_name"`
}

// Installer performs the actual installs. The engine never installs
// anything itself.
type Installer interface {
	InstallByNamespaceVersion(ctx context.Context, target Target, namespace, version string, opts InstallOptions, retry RetryOptions) error
	InstallByVersionID(ctx context.Context, target Target, versionID string, opts InstallOptions, retry RetryOptions) error
	DeployMetadata(ctx context.Context, target Target, src MetadataSource, opts DeployOptions) error
	RunFlow(ctx context.Context, target Target, src FlowSource, opts DeployOptions) error
}

// Project is the explicit context passed to resolution, flattening and
// installation. It replaces any process-wide provider state.
type Project struct {
	// Git holds the project's branch and tag conventions.
	Git vcs.GitConfig
	// CurrentBranch is the checked-out branch, used by commit status
	// strategies. May be empty.
	CurrentBranch string

	Repos     *vcs.Registry
	Resolvers *Registry
	Installer Installer
	Logger    *log.Logger

	// StrategySets maps set names to ordered strategies. Nil uses
	// [DefaultStrategySets].
	StrategySets map[string][]Strategy
	// Aliases maps "production" and "preproduction" to set names.
	Aliases map[string]string

	// Workers bounds concurrent top-level resolution (default 8).
	Workers int
}

// DefaultWorkers bounds concurrent resolution of top-level dependencies.
const DefaultWorkers = 8

var discard = log.New(io.Discard)

func (p *Project) logger() *log.Logger {
	if p == nil || p.Logger == nil {
		return discard
	}
	return p.Logger
}

func (p *Project) workers() int {
	if p == nil || p.Workers <= 0 {
		return DefaultWorkers
	}
	return p.Workers
}

// Bool returns a pointer to b, for optional flags.
func Bool(b bool) *bool { return &b }
