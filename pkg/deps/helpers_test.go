package deps

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/matzehuels/depflow/pkg/vcs"
	"github.com/matzehuels/depflow/pkg/vcs/vcstest"
	"github.com/matzehuels/depflow/pkg/version"
)

type mockTarget struct {
	name      string
	installed Installed
	err       error
}

func (t *mockTarget) Name() string { return t.name }
func (t *mockTarget) InstalledPackages(context.Context) (Installed, error) {
	return t.installed, t.err
}

func newTarget(pkgs ...InstalledPackage) *mockTarget {
	return &mockTarget{name: "test", installed: IndexInstalled(pkgs)}
}

func installedPkg(namespace, number, id string) InstalledPackage {
	return InstalledPackage{
		Namespace: namespace,
		Version:   version.Info{ID: id, Number: version.MustParse(number)},
	}
}

type installCall struct {
	method    string
	namespace string
	version   string
	versionID string
	opts      InstallOptions
	retry     RetryOptions
	source    MetadataSource
	flow      FlowSource
	deploy    DeployOptions
}

type mockInstaller struct {
	mu    sync.Mutex
	calls []installCall
}

func (m *mockInstaller) record(c installCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockInstaller) InstallByNamespaceVersion(_ context.Context, _ Target, namespace, v string, opts InstallOptions, retry RetryOptions) error {
	m.record(installCall{method: "namespace", namespace: namespace, version: v, opts: opts, retry: retry})
	return nil
}

func (m *mockInstaller) InstallByVersionID(_ context.Context, _ Target, id string, opts InstallOptions, retry RetryOptions) error {
	m.record(installCall{method: "version_id", versionID: id, opts: opts, retry: retry})
	return nil
}

func (m *mockInstaller) DeployMetadata(_ context.Context, _ Target, src MetadataSource, opts DeployOptions) error {
	m.record(installCall{method: "deploy", source: src, deploy: opts})
	return nil
}

func (m *mockInstaller) RunFlow(_ context.Context, _ Target, src FlowSource, opts DeployOptions) error {
	m.record(installCall{method: "flow", flow: src, deploy: opts})
	return nil
}

// stubResolver returns a fixed result and counts calls.
type stubResolver struct {
	can    bool
	ref    string
	static StaticDependency
	err    error
	refs   map[string]string // optional per-URL refs
	calls  atomic.Int64
}

func (s *stubResolver) CanResolve(DynamicDependency, *Project) bool { return s.can }

func (s *stubResolver) Resolve(_ context.Context, dep DynamicDependency, _ *Project) (string, StaticDependency, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", nil, s.err
	}
	if s.refs != nil {
		if d, ok := dep.(*VcsDynamicDependency); ok {
			return s.refs[d.URL], s.static, nil
		}
	}
	return s.ref, s.static, nil
}

func newProject(resolvers map[Strategy]Resolver, repos ...*vcstest.Repo) *Project {
	return &Project{
		Git:       vcs.DefaultGitConfig(),
		Repos:     vcs.NewRegistry(vcstest.NewProvider(repos...)),
		Resolvers: NewRegistry(resolvers),
		Installer: &mockInstaller{},
	}
}

func names[D Dependency](deps []D) []string {
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = d.Name()
	}
	return out
}
