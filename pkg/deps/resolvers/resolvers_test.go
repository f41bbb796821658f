package resolvers_test

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/deps/resolvers"
	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/manifest"
	"github.com/matzehuels/depflow/pkg/release"
	"github.com/matzehuels/depflow/pkg/vcs"
	"github.com/matzehuels/depflow/pkg/vcs/vcstest"
)

const (
	repoURL  = "https://github.com/Test/Dep"
	headSHA  = "1111111111111111111111111111111111111111"
	relSHA   = "2222222222222222222222222222222222222222"
	betaSHA  = "3333333333333333333333333333333333333333"
	prevSHA  = "4444444444444444444444444444444444444444"
	parentSH = "5555555555555555555555555555555555555555"
)

const depManifest = `project:
  package:
    name: Dep
    namespace: dep
`

func newRepo() *vcstest.Repo {
	r := vcstest.NewRepo(repoURL)
	r.Branches["main"] = headSHA
	for _, sha := range []string{headSHA, relSHA, betaSHA, prevSHA, parentSH} {
		r.AddFile(sha, manifest.FileName, []byte(depManifest))
	}

	r.Tags["release/1.2"] = vcs.Tag{Name: "release/1.2", SHA: "tagobj12", Commit: relSHA, Annotated: true,
		Message: release.TagMessage{Summary: "Release of version 1.2", VersionID: "04t000000000012", PackageType: release.PackageType1GP}.String()}
	r.Tags["beta/1.3-Beta_1"] = vcs.Tag{Name: "beta/1.3-Beta_1", SHA: "tagobj13", Commit: betaSHA, Annotated: true,
		Message: release.TagMessage{Summary: "Release of version 1.3 (Beta 1)", VersionID: "04t000000000013", PackageType: release.PackageType2GP}.String()}
	r.Rels = []vcs.Release{
		{TagName: "beta/1.3-Beta_1", Name: "1.3 (Beta 1)", Prerelease: true},
		{TagName: "release/1.2", Name: "1.2"},
	}
	return r
}

func newProject(repo *vcstest.Repo, branch string) *deps.Project {
	return &deps.Project{
		Git:           vcs.DefaultGitConfig(),
		CurrentBranch: branch,
		Repos:         vcs.NewRegistry(vcstest.NewProvider(repo)),
		Resolvers:     resolvers.NewRegistry(),
	}
}

func resolve(t *testing.T, project *deps.Project, dep deps.DynamicDependency, s deps.Strategy) (string, deps.StaticDependency) {
	t.Helper()
	ref, static, err := deps.GetStaticDependency(context.Background(), dep, project, []deps.Strategy{s})
	if err != nil {
		t.Fatalf("%s: %v", s, err)
	}
	return ref, static
}

func TestLatestRelease(t *testing.T) {
	project := newProject(newRepo(), "")
	dep := &deps.VcsDynamicDependency{URL: repoURL, PasswordEnvName: "DEP_PW"}

	ref, static := resolve(t, project, dep, deps.StrategyLatestRelease)
	if ref != relSHA {
		t.Errorf("ref = %s", ref)
	}
	pkg, ok := static.(*deps.PackageNamespaceVersionDependency)
	if !ok {
		t.Fatalf("static = %T", static)
	}
	if pkg.Namespace != "dep" || pkg.Version != "1.2" || pkg.PackageName != "Dep" || pkg.PasswordEnvName != "DEP_PW" {
		t.Errorf("package = %+v", pkg)
	}
}

func TestLatestBeta(t *testing.T) {
	project := newProject(newRepo(), "")
	ref, static := resolve(t, project, &deps.VcsDynamicDependency{URL: repoURL}, deps.StrategyLatestBeta)
	if ref != betaSHA {
		t.Errorf("ref = %s", ref)
	}
	pkg, ok := static.(*deps.PackageVersionIDDependency)
	if !ok {
		t.Fatalf("2GP beta should resolve by version id, got %T", static)
	}
	if pkg.VersionID != "04t000000000013" || pkg.VersionNumber != "1.3 (Beta 1)" {
		t.Errorf("package = %+v", pkg)
	}
}

func TestLatestReleaseUnmanaged(t *testing.T) {
	project := newProject(newRepo(), "")
	ref, static := resolve(t, project, &deps.VcsDynamicDependency{URL: repoURL, Unmanaged: deps.Bool(true)}, deps.StrategyLatestRelease)
	if ref != relSHA || static != nil {
		t.Errorf("got (%s, %v)", ref, static)
	}
}

func TestLatestReleaseNone(t *testing.T) {
	repo := newRepo()
	repo.Rels = nil
	project := newProject(repo, "")
	_, _, err := deps.GetStaticDependency(context.Background(), &deps.VcsDynamicDependency{URL: repoURL}, project,
		[]deps.Strategy{deps.StrategyLatestRelease, deps.StrategyUnmanaged})
	if err != nil {
		t.Fatal(err)
	}
	// falls through to unmanaged
	ref, static := resolve(t, project, &deps.VcsDynamicDependency{URL: repoURL}, deps.StrategyUnmanaged)
	if ref != headSHA || static != nil {
		t.Errorf("got (%s, %v)", ref, static)
	}
}

func TestTag(t *testing.T) {
	project := newProject(newRepo(), "")
	dep := &deps.VcsDynamicDependency{URL: repoURL, Tag: "release/1.2"}
	ref, static := resolve(t, project, dep, deps.StrategyTag)
	if ref != relSHA {
		t.Errorf("ref = %s", ref)
	}
	if static == nil || static.Name() != "Install Dep 1.2" {
		t.Errorf("static = %v", static)
	}

	if (resolvers.TagResolver{}).CanResolve(&deps.VcsDynamicDependency{URL: repoURL}, project) {
		t.Error("tag resolver should decline dependencies without a tag")
	}
}

func TestTagMissing(t *testing.T) {
	project := newProject(newRepo(), "")
	_, _, err := deps.GetStaticDependency(context.Background(), &deps.VcsDynamicDependency{URL: repoURL, Tag: "release/9.9"}, project,
		[]deps.Strategy{deps.StrategyTag, deps.StrategyUnmanaged})
	if !errors.IsResolution(err) || !strings.Contains(err.Error(), "release/9.9") {
		t.Fatalf("expected resolution error for missing tag, got %v", err)
	}
}

func TestCommitStatus(t *testing.T) {
	repo := newRepo()
	repo.Branches["feature/230"] = headSHA
	repo.Branches["feature/229"] = prevSHA
	repo.Branches["feature/230__work"] = betaSHA
	repo.Commits[headSHA] = vcs.Commit{SHA: headSHA, Parents: []string{parentSH}}
	repo.Statuses[parentSH] = []vcs.CommitStatus{
		{Context: "ci/other", State: "success", Description: "version_id: 04t0000000000XX"},
		{Context: resolvers.StatusContext, State: "success", Description: "version_id: 04t000000000230"},
	}
	repo.Statuses[prevSHA] = []vcs.CommitStatus{
		{Context: resolvers.StatusContext, State: "success", Description: "version_id: 04t000000000229"},
	}
	repo.Statuses[betaSHA] = []vcs.CommitStatus{
		{Context: resolvers.StatusContext, State: "failure", Description: "version_id: 04t0000000000FF"},
	}

	tests := []struct {
		strategy deps.Strategy
		wantRef  string
		wantID   string
	}{
		{deps.StrategyCommitStatusReleaseBranch, parentSH, "04t000000000230"},
		{deps.StrategyCommitStatusPreviousReleaseBranch, prevSHA, "04t000000000229"},
		{deps.StrategyCommitStatusDefaultBranch, parentSH, "04t000000000230"},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			project := newProject(repo, "feature/230__work")
			ref, static := resolve(t, project, &deps.VcsDynamicDependency{URL: repoURL}, tt.strategy)
			if ref != tt.wantRef {
				t.Errorf("ref = %s, want %s", ref, tt.wantRef)
			}
			pkg, ok := static.(*deps.PackageVersionIDDependency)
			if !ok || pkg.VersionID != tt.wantID || pkg.PackageName != "Dep" {
				t.Errorf("static = %+v", static)
			}
		})
	}

	// the exact branch only carries a failed build
	project := newProject(repo, "feature/230__work")
	_, _, err := deps.GetStaticDependency(context.Background(), &deps.VcsDynamicDependency{URL: repoURL}, project,
		[]deps.Strategy{deps.StrategyCommitStatusExactBranch})
	if !errors.IsResolution(err) {
		t.Errorf("expected exhaustion, got %v", err)
	}
}

func TestCommitStatusNotOnReleaseBranch(t *testing.T) {
	r := resolvers.CommitStatusResolver{Branch: resolvers.DefaultBranch}
	for _, branch := range []string{"", "main", "feature/new-thing"} {
		project := newProject(newRepo(), branch)
		if r.CanResolve(&deps.VcsDynamicDependency{URL: repoURL}, project) {
			t.Errorf("commit status should not apply on %q", branch)
		}
	}
}

func TestCommitStatusStrategySet(t *testing.T) {
	repo := newRepo()
	project := newProject(repo, "feature/230")
	strategies, err := project.Strategies(deps.SetCommitStatus)
	if err != nil {
		t.Fatal(err)
	}
	// no statuses anywhere: falls through to latest_beta
	ref, static, err := deps.GetStaticDependency(context.Background(), &deps.VcsDynamicDependency{URL: repoURL}, project, strategies)
	if err != nil {
		t.Fatal(err)
	}
	if ref != betaSHA || static == nil {
		t.Errorf("got (%s, %v)", ref, static)
	}
}

func TestSubfolderResolution(t *testing.T) {
	project := newProject(newRepo(), "")
	dep := &deps.VcsDynamicSubfolderDependency{URL: repoURL, Subfolder: "unpackaged/config"}
	if err := dep.Resolve(context.Background(), project, []deps.Strategy{deps.StrategyLatestRelease}); err != nil {
		t.Fatal(err)
	}
	steps, err := deps.Flatten(context.Background(), project, dep, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 1 || steps[0].Description() != repoURL+"/unpackaged/config @"+relSHA {
		t.Errorf("steps = %v", steps)
	}
}

func TestEndToEnd(t *testing.T) {
	repo := newRepo()
	repo.AddDir(relSHA, "unpackaged/pre/first")
	repo.AddDir(relSHA, "unpackaged/post/first")
	project := newProject(repo, "")
	strategies, _ := project.Strategies(deps.AliasProduction)

	top, err := deps.ParseDependencies([]map[string]any{{"github": repoURL}})
	if err != nil {
		t.Fatal(err)
	}
	steps, err := deps.GetStaticDependencies(context.Background(), project, top, strategies)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, s := range steps {
		got = append(got, s.Name())
	}
	want := []string{
		"Deploy " + repoURL + "/unpackaged/pre/first",
		"Install Dep 1.2",
		"Deploy " + repoURL + "/unpackaged/post/first",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("steps = %v, want %v", got, want)
	}
}
