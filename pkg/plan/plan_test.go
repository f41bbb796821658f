package plan_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/deps/resolvers"
	"github.com/matzehuels/depflow/pkg/manifest"
	"github.com/matzehuels/depflow/pkg/plan"
	"github.com/matzehuels/depflow/pkg/release"
	"github.com/matzehuels/depflow/pkg/vcs"
	"github.com/matzehuels/depflow/pkg/vcs/vcstest"
	"github.com/matzehuels/depflow/pkg/version"
)

const (
	repoURL = "https://github.com/Test/Dep"
	headSHA = "1111111111111111111111111111111111111111"
	relSHA  = "2222222222222222222222222222222222222222"
)

func installed(namespace, number, id string) deps.InstalledPackage {
	return deps.InstalledPackage{Namespace: namespace, Version: version.Info{ID: id, Number: version.MustParse(number)}}
}

func sampleSteps() []deps.StaticDependency {
	return []deps.StaticDependency{
		&deps.PackageNamespaceVersionDependency{Namespace: "foo", Version: "1.1", PackageName: "Foo"},
		&deps.PackageNamespaceVersionDependency{Namespace: "bar", Version: "2.0"},
		&deps.PackageVersionIDDependency{VersionID: "04t000000000001", PackageName: "Baz"},
		&deps.UnmanagedVcsRefDependency{VCS: "github", URL: repoURL, Ref: headSHA, Subfolder: "unpackaged/post/config"},
		&deps.UnmanagedVcsDependencyFlow{VCS: "github", URL: repoURL, Commit: headSHA, FlowName: "install_prod"},
	}
}

func TestNew(t *testing.T) {
	p := plan.New(sampleSteps())
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Errorf("plan = %+v", p)
	}
	if len(p.Steps) != 5 {
		t.Fatalf("steps = %d", len(p.Steps))
	}
	for i, s := range p.Steps {
		if s.Index != i+1 || s.Action != plan.ActionPending {
			t.Errorf("step %d = %+v", i, s)
		}
	}
	if p.Steps[0].Dependency["namespace"] != "foo" || p.Steps[0].Kind != deps.KindPackageVersion {
		t.Errorf("step 1 = %+v", p.Steps[0])
	}
	if other := plan.New(nil); other.ID == p.ID {
		t.Error("plan ids should be unique")
	}
}

func TestGate(t *testing.T) {
	p := plan.New(sampleSteps())
	target := plan.NewSnapshot("dev",
		installed("foo", "1.2", "04t000000000009"),
		installed("baz", "3.0", "04t000000000001"),
	)
	if err := p.Gate(context.Background(), target); err != nil {
		t.Fatal(err)
	}
	want := []plan.Action{plan.ActionSkip, plan.ActionInstall, plan.ActionSkip, plan.ActionDeploy, plan.ActionRunFlow}
	for i, s := range p.Steps {
		if s.Action != want[i] {
			t.Errorf("step %d action = %s, want %s", s.Index, s.Action, want[i])
		}
	}
	if !strings.Contains(p.Steps[0].Reason, "1.1 or newer") {
		t.Errorf("reason = %q", p.Steps[0].Reason)
	}
	if p.Target != "dev" {
		t.Errorf("target = %q", p.Target)
	}
}

type failingTarget struct{}

func (failingTarget) Name() string { return "broken" }
func (failingTarget) InstalledPackages(context.Context) (deps.Installed, error) {
	return nil, errors.New("offline")
}

func TestGateTargetError(t *testing.T) {
	err := plan.New(sampleSteps()).Gate(context.Background(), failingTarget{})
	if err == nil || !strings.Contains(err.Error(), "offline") {
		t.Fatalf("err = %v", err)
	}
}

func TestExecute(t *testing.T) {
	rec := &plan.Recorder{}
	project := &deps.Project{Installer: rec}
	target := plan.NewSnapshot("dev", installed("foo", "1.2", "04t000000000009"))

	p := plan.New(sampleSteps())
	results, err := p.Execute(context.Background(), project, target, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 || !results[0].Skipped || results[1].Skipped {
		t.Fatalf("results = %+v", results)
	}

	var methods []string
	for _, c := range rec.Calls() {
		methods = append(methods, c.Method)
	}
	if got := strings.Join(methods, ","); got != "install,install,deploy,run_flow" {
		t.Errorf("calls = %s", got)
	}

	got, _ := target.InstalledPackages(context.Background())
	if !got.Has("bar") || !got.Has("04t000000000001") {
		t.Errorf("snapshot not updated: %v", got)
	}
}

type brokenInstaller struct{ plan.Recorder }

func (b *brokenInstaller) InstallByNamespaceVersion(context.Context, deps.Target, string, string, deps.InstallOptions, deps.RetryOptions) error {
	return errors.New("install failed")
}

func TestExecuteStopsOnError(t *testing.T) {
	inst := &brokenInstaller{}
	project := &deps.Project{Installer: inst}
	p := plan.New(sampleSteps())

	results, err := p.Execute(context.Background(), project, plan.NewSnapshot("dev"), nil)
	if err == nil || !strings.Contains(err.Error(), "step 1") {
		t.Fatalf("err = %v", err)
	}
	if len(results) != 1 || results[0].Err == nil {
		t.Errorf("results = %+v", results)
	}
	if len(inst.Calls()) != 0 {
		t.Errorf("later steps ran: %+v", inst.Calls())
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	project := &deps.Project{Installer: &plan.Recorder{}}
	_, err := plan.New(sampleSteps()).Execute(ctx, project, plan.NewSnapshot("dev"), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestBuild(t *testing.T) {
	repo := vcstest.NewRepo(repoURL)
	repo.Branches["main"] = headSHA
	repo.AddFile(relSHA, manifest.FileName, []byte("project:\n  package:\n    name: Dep\n    namespace: dep\n"))
	repo.AddDir(relSHA, "unpackaged/post/first")
	repo.Tags["release/1.2"] = vcs.Tag{Name: "release/1.2", SHA: "tagobj", Commit: relSHA, Annotated: true,
		Message: release.TagMessage{Summary: release.DefaultSummary("1.2"), VersionID: "04t000000000012", PackageType: release.PackageType1GP}.String()}
	repo.Rels = []vcs.Release{{TagName: "release/1.2", Name: "1.2"}}

	project := &deps.Project{
		Git:       vcs.DefaultGitConfig(),
		Repos:     vcs.NewRegistry(vcstest.NewProvider(repo)),
		Resolvers: resolvers.NewRegistry(),
	}
	declared, err := deps.ParseDependencies([]map[string]any{{"github": repoURL}})
	if err != nil {
		t.Fatal(err)
	}

	p, err := plan.Build(context.Background(), project, declared, deps.AliasProduction)
	if err != nil {
		t.Fatal(err)
	}
	if p.Strategy != deps.AliasProduction || len(p.Steps) != 2 {
		t.Fatalf("plan = %+v", p)
	}
	if p.Steps[0].Name != "Install Dep 1.2" || p.Steps[1].Name != "Deploy "+repoURL+"/unpackaged/post/first" {
		t.Errorf("steps = %q, %q", p.Steps[0].Name, p.Steps[1].Name)
	}
	if len(p.Dependencies()) != 2 {
		t.Errorf("dependencies = %v", p.Dependencies())
	}

	if _, err := plan.Build(context.Background(), project, declared, "no_such_set"); err == nil {
		t.Error("expected unknown strategy set to fail")
	}
}
