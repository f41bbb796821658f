package deps

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/manifest"
	"github.com/matzehuels/depflow/pkg/vcs/vcstest"
)

const (
	otherRepo = "https://github.com/Test/Other"
	refA      = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	refB      = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func manifestYAML(namespace string, deps ...string) []byte {
	var b strings.Builder
	b.WriteString("project:\n  package:\n    name: Test\n")
	if namespace != "" {
		b.WriteString("    namespace: " + namespace + "\n")
	}
	if len(deps) > 0 {
		b.WriteString("  dependencies:\n")
		for _, d := range deps {
			b.WriteString("    - " + d + "\n")
		}
	}
	return []byte(b.String())
}

// layeredRepo has two pre folders, one post folder and a manifest for
// namespace "bar".
func layeredRepo(url, ref string, deps ...string) *vcstest.Repo {
	r := vcstest.NewRepo(url)
	r.AddFile(ref, manifest.FileName, manifestYAML("bar", deps...))
	r.AddDir(ref, "unpackaged/pre/second")
	r.AddDir(ref, "unpackaged/pre/first")
	r.AddDir(ref, "unpackaged/post/first")
	r.AddFile(ref, "unpackaged/pre/README.md", []byte("not a folder"))
	return r
}

func TestFlattenStatic(t *testing.T) {
	dep := &PackageNamespaceVersionDependency{Namespace: "foo", Version: "1.0"}
	got, err := Flatten(context.Background(), &Project{}, dep, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != dep {
		t.Errorf("static dependency should flatten to itself, got %v", names(got))
	}
}

func TestFlattenUnresolved(t *testing.T) {
	for _, dep := range []Dependency{
		&VcsDynamicDependency{URL: testRepo},
		&VcsDynamicSubfolderDependency{URL: testRepo, Subfolder: "src"},
	} {
		_, err := Flatten(context.Background(), &Project{}, dep, nil)
		if !errors.IsResolution(err) || !strings.Contains(err.Error(), "is not resolved") {
			t.Errorf("%s: expected 'is not resolved', got %v", dep.Name(), err)
		}
	}
}

func TestFlattenOrder(t *testing.T) {
	project := newProject(nil, layeredRepo(testRepo, refA))
	dep := &VcsDynamicDependency{
		URL:               testRepo,
		Ref:               refA,
		PackageDependency: &PackageNamespaceVersionDependency{Namespace: "bar", Version: "1.0"},
	}

	got, err := Flatten(context.Background(), project, dep, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"Deploy " + testRepo + "/unpackaged/pre/first",
		"Deploy " + testRepo + "/unpackaged/pre/second",
		"Install bar 1.0",
		"Deploy " + testRepo + "/unpackaged/post/first",
	}
	assertNames(t, got, want)

	pre := got[0].(*UnmanagedVcsRefDependency)
	if pre.Unmanaged == nil || !*pre.Unmanaged || pre.Ref != refA {
		t.Errorf("pre step = %+v", pre)
	}
	post := got[3].(*UnmanagedVcsRefDependency)
	if post.Unmanaged == nil || *post.Unmanaged || post.NamespaceInject != "bar" || post.NamespaceStrip != "" {
		t.Errorf("post step should be managed and injected: %+v", post)
	}
}

func TestFlattenSkip(t *testing.T) {
	project := newProject(nil, layeredRepo(testRepo, refA))
	dep := &VcsDynamicDependency{
		URL:               testRepo,
		Ref:               refA,
		Skip:              []string{"unpackaged/pre/first"},
		PackageDependency: &PackageNamespaceVersionDependency{Namespace: "bar", Version: "1.0"},
	}
	got, err := Flatten(context.Background(), project, dep, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, got, []string{
		"Deploy " + testRepo + "/unpackaged/pre/second",
		"Install bar 1.0",
		"Deploy " + testRepo + "/unpackaged/post/first",
	})
}

func TestFlattenUnmanaged(t *testing.T) {
	project := newProject(nil, layeredRepo(testRepo, refA))
	dep := &VcsDynamicDependency{
		URL:               testRepo,
		Ref:               refA,
		Unmanaged:         Bool(true),
		PackageDependency: &PackageNamespaceVersionDependency{Namespace: "bar", Version: "1.0"},
	}
	got, err := Flatten(context.Background(), project, dep, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, got, []string{
		"Deploy " + testRepo + "/unpackaged/pre/first",
		"Deploy " + testRepo + "/unpackaged/pre/second",
		"Deploy " + testRepo,
		"Deploy " + testRepo + "/unpackaged/post/first",
	})
	root := got[2].(*UnmanagedVcsRefDependency)
	if root.Unmanaged == nil || !*root.Unmanaged || root.NamespaceStrip != "" || root.NamespaceInject != "" {
		t.Errorf("root step should be unmanaged without namespace options: %+v", root)
	}
	post := got[3].(*UnmanagedVcsRefDependency)
	if post.Unmanaged == nil || !*post.Unmanaged || post.NamespaceStrip != "bar" || post.NamespaceInject != "" {
		t.Errorf("post step should be unmanaged and stripped: %+v", post)
	}
}

func TestFlattenImplicitUnmanaged(t *testing.T) {
	project := newProject(nil, layeredRepo(testRepo, refA))
	dep := &VcsDynamicDependency{URL: testRepo, Ref: refA}
	got, err := Flatten(context.Background(), project, dep, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got[2].Name() != "Deploy "+testRepo {
		t.Errorf("without a release the repository root should deploy, got %v", names(got))
	}
}

func TestFlattenMissingRelease(t *testing.T) {
	project := newProject(nil, layeredRepo(testRepo, refA))
	dep := &VcsDynamicDependency{URL: testRepo, Ref: refA, Unmanaged: Bool(false)}
	_, err := Flatten(context.Background(), project, dep, nil)
	if !errors.IsResolution(err) || !strings.Contains(err.Error(), "could not find latest release") {
		t.Fatalf("expected missing release error, got %v", err)
	}
}

func TestFlattenTransitive(t *testing.T) {
	repo := layeredRepo(testRepo, refA, "github: "+otherRepo, `{namespace: baz, version: "1.2"}`)
	other := vcstest.NewRepo(otherRepo)
	other.AddFile(refB, "src/.keep", nil)

	res := &stubResolver{can: true, ref: refB}
	project := newProject(map[Strategy]Resolver{StrategyUnmanaged: res}, repo, other)
	dep := &VcsDynamicDependency{
		URL:               testRepo,
		Ref:               refA,
		PackageDependency: &PackageNamespaceVersionDependency{Namespace: "bar", Version: "1.0"},
	}

	got, err := Flatten(context.Background(), project, dep, []Strategy{StrategyUnmanaged})
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, got, []string{
		"Deploy " + otherRepo,
		"Install baz 1.2",
		"Deploy " + testRepo + "/unpackaged/pre/first",
		"Deploy " + testRepo + "/unpackaged/pre/second",
		"Install bar 1.0",
		"Deploy " + testRepo + "/unpackaged/post/first",
	})
	if res.calls.Load() != 1 {
		t.Errorf("transitive dependency resolved %d times", res.calls.Load())
	}
}

func TestFlattenUnparseableTransitive(t *testing.T) {
	repo := layeredRepo(testRepo, refA, "{foo: bar}")
	project := newProject(nil, repo)
	dep := &VcsDynamicDependency{URL: testRepo, Ref: refA}

	_, err := Flatten(context.Background(), project, dep, nil)
	if !errors.IsResolution(err) || !strings.Contains(err.Error(), "transitive dependency could not be parsed") {
		t.Fatalf("expected parse failure, got %v", err)
	}
}

func TestFlattenMissingManifest(t *testing.T) {
	repo := vcstest.NewRepo(testRepo)
	repo.AddDir(refA, "unpackaged/post/only")
	project := newProject(nil, repo)

	got, err := Flatten(context.Background(), project, &VcsDynamicDependency{URL: testRepo, Ref: refA}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, got, []string{
		"Deploy " + testRepo,
		"Deploy " + testRepo + "/unpackaged/post/only",
	})
}

func TestFlattenCycle(t *testing.T) {
	a := vcstest.NewRepo(testRepo)
	a.AddFile(refA, manifest.FileName, manifestYAML("", "github: "+otherRepo))
	b := vcstest.NewRepo(otherRepo)
	b.AddFile(refB, manifest.FileName, manifestYAML("", "github: "+testRepo))

	res := &stubResolver{can: true, refs: map[string]string{testRepo: refA, otherRepo: refB}}
	project := newProject(map[Strategy]Resolver{StrategyUnmanaged: res}, a, b)

	dep, err := ParseDependency(map[string]any{"github": testRepo})
	if err != nil {
		t.Fatal(err)
	}
	_, err = GetStaticDependencies(context.Background(), project, []Dependency{dep}, []Strategy{StrategyUnmanaged})
	if !errors.IsResolution(err) || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestFlattenSubfolder(t *testing.T) {
	dep := &VcsDynamicSubfolderDependency{URL: testRepo, Subfolder: "src", Ref: refA, NamespaceInject: "bar"}
	got, err := Flatten(context.Background(), &Project{}, dep, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %v", names(got))
	}
	u := got[0].(*UnmanagedVcsRefDependency)
	if u.Ref != refA || u.Subfolder != "src" || u.NamespaceInject != "bar" || u.Unmanaged != nil {
		t.Errorf("subfolder step = %+v", u)
	}
}

func TestGetStaticDependencies(t *testing.T) {
	repo := layeredRepo(testRepo, refA, `{namespace: baz, version: "1.2"}`)
	other := vcstest.NewRepo(otherRepo)
	other.AddFile(refB, manifest.FileName, manifestYAML("", `{namespace: baz, version: "1.2"}`))

	res := &stubResolver{can: true, refs: map[string]string{testRepo: refA, otherRepo: refB}}
	project := newProject(map[Strategy]Resolver{StrategyUnmanaged: res}, repo, other)

	decls := []map[string]any{
		{"github": testRepo},
		{"namespace": "baz", "version": "1.2"},
		{"github": otherRepo},
		{"version_id": "04t000000000000"},
	}
	top, err := ParseDependencies(decls)
	if err != nil {
		t.Fatal(err)
	}

	got, err := GetStaticDependencies(context.Background(), project, top, []Strategy{StrategyUnmanaged})
	if err != nil {
		t.Fatal(err)
	}
	assertNames(t, got, []string{
		"Install baz 1.2",
		"Deploy " + testRepo + "/unpackaged/pre/first",
		"Deploy " + testRepo + "/unpackaged/pre/second",
		"Deploy " + testRepo,
		"Deploy " + testRepo + "/unpackaged/post/first",
		"Deploy " + otherRepo,
		"Install Unknown Package 04t000000000000",
	})
}

func TestGetStaticDependenciesFailure(t *testing.T) {
	project := newProject(map[Strategy]Resolver{StrategyUnmanaged: &stubResolver{can: false}})
	top := []Dependency{
		&PackageNamespaceVersionDependency{Namespace: "foo", Version: "1.0"},
		&VcsDynamicDependency{URL: testRepo},
	}
	got, err := GetStaticDependencies(context.Background(), project, top, []Strategy{StrategyUnmanaged})
	if !errors.IsResolution(err) {
		t.Fatalf("expected resolution error, got %v", err)
	}
	if got != nil {
		t.Errorf("partial results returned: %v", names(got))
	}
}

func TestDedupe(t *testing.T) {
	a := &PackageNamespaceVersionDependency{Namespace: "a", Version: "1.0"}
	b := &PackageNamespaceVersionDependency{Namespace: "b", Version: "1.0"}
	a2 := &PackageNamespaceVersionDependency{Namespace: "a", Version: "1.0"}
	got := Dedupe([]StaticDependency{a, b, a2})
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("Dedupe() = %v", names(got))
	}
}

func assertNames[D Dependency](t *testing.T, got []D, want []string) {
	t.Helper()
	g := names(got)
	if len(g) != len(want) {
		t.Fatalf("got %d steps %v, want %d %v", len(g), g, len(want), want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, g[i], want[i])
		}
	}
}
