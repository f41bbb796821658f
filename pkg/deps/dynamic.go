package deps

import (
	"context"
	"fmt"
	"sort"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/manifest"
	"github.com/matzehuels/depflow/pkg/vcs"
)

// Directories holding metadata deployed around the main package install.
const (
	PreDir  = "unpackaged/pre"
	PostDir = "unpackaged/post"
)

// RepoDependency is a dynamic dependency rooted in a repository. Resolvers
// work against this view rather than concrete variants.
type RepoDependency interface {
	DynamicDependency
	// Repo opens the dependency's repository through the project registry.
	Repo(ctx context.Context, project *Project) (vcs.Repository, error)
	// PinnedTag returns the declared tag, or "".
	PinnedTag() string
	// UnmanagedFlag returns the explicit unmanaged flag, or nil when the
	// declaration leaves it implicit.
	UnmanagedFlag() *bool
	// PasswordEnv names the environment variable holding the package
	// install key, or "".
	PasswordEnv() string
}

// VcsDynamicDependency points at a repository whose install steps depend on
// what the repository contains at the resolved ref: its own declared
// dependencies, unpackaged pre/post metadata and its package release.
type VcsDynamicDependency struct {
	VCS             string   `json:"vcs,omitempty"`
	URL             string   `json:"url"`
	RepoOwner       string   `json:"repo_owner,omitempty"`
	RepoName        string   `json:"repo_name,omitempty"`
	Tag             string   `json:"tag,omitempty"`
	Ref             string   `json:"ref,omitempty"`
	Unmanaged       *bool    `json:"unmanaged,omitempty"`
	Skip            []string `json:"skip,omitempty"`
	PasswordEnvName string   `json:"password_env_name,omitempty"`

	// PackageDependency is the release found during resolution, if any.
	PackageDependency StaticDependency `json:"-"`

	state resolveState
}

func (d *VcsDynamicDependency) Name() string { return "Dependency: " + d.URL }

func (d *VcsDynamicDependency) Description() string {
	switch {
	case d.Tag != "":
		return fmt.Sprintf("%s @%s", d.URL, d.Tag)
	case d.Ref != "":
		return fmt.Sprintf("%s @%s", d.URL, d.Ref)
	}
	return d.URL
}

func (d *VcsDynamicDependency) Kind() Kind  { return KindVcsDynamic }
func (d *VcsDynamicDependency) Key() string { return makeKey(d.Kind(), d) }

func (d *VcsDynamicDependency) PinnedTag() string    { return d.Tag }
func (d *VcsDynamicDependency) UnmanagedFlag() *bool { return d.Unmanaged }
func (d *VcsDynamicDependency) PasswordEnv() string  { return d.PasswordEnvName }

func (d *VcsDynamicDependency) Repo(ctx context.Context, project *Project) (vcs.Repository, error) {
	return openRepo(ctx, project, d.VCS, d.URL)
}

func (d *VcsDynamicDependency) validate() error {
	if d.Tag != "" && d.Ref != "" {
		return errors.Validation("tag and ref are mutually exclusive for %s", d.URL)
	}
	if (d.RepoOwner == "") != (d.RepoName == "") {
		return errors.Validation("repo_owner and repo_name must be given together")
	}
	if _, err := vcs.ParseRepoURL(d.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDependency, err, "invalid repository URL")
	}
	for _, s := range d.Skip {
		if err := errors.ValidatePath(s); err != nil {
			return err
		}
	}
	return nil
}

// IsResolved reports whether a ref is known. A declared ref counts.
func (d *VcsDynamicDependency) IsResolved() bool {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	return d.Ref != ""
}

// Resolve runs the strategy pipeline unless the dependency is already
// resolved. Concurrent callers wait for the first one to finish.
func (d *VcsDynamicDependency) Resolve(ctx context.Context, project *Project, strategies []Strategy) error {
	return resolveOnce(ctx, &d.state, d, func() bool { return d.Ref != "" }, project, strategies,
		func(ref string, static StaticDependency) {
			d.Ref = ref
			d.PackageDependency = static
		})
}

// installsUnmanaged reports whether the repository root deploys as
// unmanaged metadata instead of through a package release.
func (d *VcsDynamicDependency) installsUnmanaged() bool {
	if d.Unmanaged != nil {
		return *d.Unmanaged
	}
	return d.PackageDependency == nil
}

func (d *VcsDynamicDependency) skips(path string) bool {
	for _, s := range d.Skip {
		if s == path {
			return true
		}
	}
	return false
}

// Flatten expands the dependency one level: the repository's declared
// dependencies (unresolved), its pre folders, the package release or the
// repository root, and its post folders.
func (d *VcsDynamicDependency) Flatten(ctx context.Context, project *Project) ([]Dependency, error) {
	if !d.IsResolved() {
		return nil, errors.Resolution("dependency %s is not resolved and cannot be flattened", d.Name())
	}
	repo, err := d.Repo(ctx, project)
	if err != nil {
		return nil, err
	}

	project.logger().Info("collecting dependencies", "repo", d.URL, "ref", shortRef(d.Ref))
	m, err := RemoteManifest(ctx, repo, d.Ref)
	if err != nil {
		return nil, err
	}

	var out []Dependency
	for i, decl := range m.Project.Dependencies {
		dep, err := ParseDependency(decl)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeResolution, err,
				"unable to flatten %s: transitive dependency could not be parsed (entry %d)", d.Name(), i+1)
		}
		out = append(out, dep)
	}

	namespace := m.Project.Package.Namespace
	unmanaged := d.installsUnmanaged()

	pre, err := d.unpackaged(ctx, repo, PreDir, func(path string) *UnmanagedVcsRefDependency {
		return &UnmanagedVcsRefDependency{VCS: d.VCS, URL: d.URL, Ref: d.Ref, Subfolder: path,
			unmanagedOptions: unmanagedOptions{Unmanaged: Bool(true)}}
	})
	if err != nil {
		return nil, err
	}
	out = append(out, pre...)

	switch {
	case unmanaged:
		out = append(out, &UnmanagedVcsRefDependency{VCS: d.VCS, URL: d.URL, Ref: d.Ref,
			unmanagedOptions: unmanagedOptions{Unmanaged: Bool(true)}})
	case d.PackageDependency != nil:
		out = append(out, d.PackageDependency)
	default:
		return nil, errors.Resolution("could not find latest release for %s", d.Name())
	}

	post, err := d.unpackaged(ctx, repo, PostDir, func(path string) *UnmanagedVcsRefDependency {
		opts := unmanagedOptions{Unmanaged: Bool(unmanaged)}
		if unmanaged {
			opts.NamespaceStrip = namespace
		} else {
			opts.NamespaceInject = namespace
		}
		return &UnmanagedVcsRefDependency{VCS: d.VCS, URL: d.URL, Ref: d.Ref, Subfolder: path, unmanagedOptions: opts}
	})
	if err != nil {
		return nil, err
	}
	return append(out, post...), nil
}

// unpackaged lists the folders under dir at the resolved ref, sorted by
// path, minus skipped ones.
func (d *VcsDynamicDependency) unpackaged(ctx context.Context, repo vcs.Repository, dir string, build func(path string) *UnmanagedVcsRefDependency) ([]Dependency, error) {
	entries, err := repo.Contents(ctx, dir, d.Ref)
	if err != nil {
		if vcs.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s in %s: %w", dir, d.URL, err)
	}

	var paths []string
	for _, e := range entries {
		if e.Type != vcs.EntryDir {
			continue
		}
		if d.skips(e.Path) {
			continue
		}
		paths = append(paths, e.Path)
	}
	sort.Strings(paths)

	out := make([]Dependency, len(paths))
	for i, p := range paths {
		out[i] = build(p)
	}
	return out, nil
}

// VcsDynamicSubfolderDependency deploys a single folder of a repository at
// a ref chosen by the strategy pipeline.
type VcsDynamicSubfolderDependency struct {
	VCS             string `json:"vcs,omitempty"`
	URL             string `json:"url"`
	RepoOwner       string `json:"repo_owner,omitempty"`
	RepoName        string `json:"repo_name,omitempty"`
	Subfolder       string `json:"subfolder"`
	Ref             string `json:"ref,omitempty"`
	NamespaceInject string `json:"namespace_inject,omitempty"`
	NamespaceStrip  string `json:"namespace_strip,omitempty"`

	state resolveState
}

func (d *VcsDynamicSubfolderDependency) Name() string {
	return fmt.Sprintf("Dependency: %s/%s", d.URL, d.Subfolder)
}

func (d *VcsDynamicSubfolderDependency) Description() string {
	if d.Ref != "" {
		return fmt.Sprintf("%s/%s @%s", d.URL, d.Subfolder, d.Ref)
	}
	return fmt.Sprintf("%s/%s", d.URL, d.Subfolder)
}

func (d *VcsDynamicSubfolderDependency) Kind() Kind  { return KindVcsDynamicSubfolder }
func (d *VcsDynamicSubfolderDependency) Key() string { return makeKey(d.Kind(), d) }

func (d *VcsDynamicSubfolderDependency) PinnedTag() string    { return "" }
func (d *VcsDynamicSubfolderDependency) UnmanagedFlag() *bool { return nil }
func (d *VcsDynamicSubfolderDependency) PasswordEnv() string  { return "" }

func (d *VcsDynamicSubfolderDependency) Repo(ctx context.Context, project *Project) (vcs.Repository, error) {
	return openRepo(ctx, project, d.VCS, d.URL)
}

func (d *VcsDynamicSubfolderDependency) validate() error {
	if (d.RepoOwner == "") != (d.RepoName == "") {
		return errors.Validation("repo_owner and repo_name must be given together")
	}
	if _, err := vcs.ParseRepoURL(d.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDependency, err, "invalid repository URL")
	}
	return errors.ValidatePath(d.Subfolder)
}

// IsResolved reports whether a ref is known.
func (d *VcsDynamicSubfolderDependency) IsResolved() bool {
	d.state.mu.Lock()
	defer d.state.mu.Unlock()
	return d.Ref != ""
}

// Resolve runs the strategy pipeline once. Only the ref is kept; a package
// release found by the resolver is irrelevant to a single folder.
func (d *VcsDynamicSubfolderDependency) Resolve(ctx context.Context, project *Project, strategies []Strategy) error {
	return resolveOnce(ctx, &d.state, d, func() bool { return d.Ref != "" }, project, strategies,
		func(ref string, _ StaticDependency) {
			d.Ref = ref
		})
}

// Flatten returns the folder at the resolved ref.
func (d *VcsDynamicSubfolderDependency) Flatten(context.Context, *Project) ([]Dependency, error) {
	if !d.IsResolved() {
		return nil, errors.Resolution("dependency %s is not resolved and cannot be flattened", d.Name())
	}
	return []Dependency{&UnmanagedVcsRefDependency{
		VCS:       d.VCS,
		URL:       d.URL,
		Ref:       d.Ref,
		Subfolder: d.Subfolder,
		unmanagedOptions: unmanagedOptions{
			NamespaceInject: d.NamespaceInject,
			NamespaceStrip:  d.NamespaceStrip,
		},
	}}, nil
}

func openRepo(ctx context.Context, project *Project, vcsName, url string) (vcs.Repository, error) {
	if project == nil || project.Repos == nil {
		return nil, errors.New(errors.ErrCodeInternal, "no VCS providers configured")
	}
	return project.Repos.Repo(ctx, vcsName, url)
}

// RemoteManifest loads the manifest of repo at ref. A repository without
// one is treated as declaring nothing.
func RemoteManifest(ctx context.Context, repo vcs.Repository, ref string) (*manifest.Manifest, error) {
	m, err := manifest.LoadRemote(ctx, repo, ref)
	if err != nil {
		if vcs.IsNotFound(err) {
			return &manifest.Manifest{}, nil
		}
		return nil, err
	}
	return m, nil
}
