package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/manifest"
	"github.com/matzehuels/depflow/pkg/plan"
)

const testManifest = `project:
  package:
    name: App
    namespace: app
  dependencies:
    - namespace: foo
      version: "1.2"
      package_name: Foo
    - version_id: 04t000000000001
      package_name: Bar
    - zip_url: https://example.com/config.zip
  dependency_resolutions:
    production: include_beta
`

// newProjectDir writes a manifest to a fresh directory and isolates config
// and cache lookups from the host.
func newProjectDir(t *testing.T, content string) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("DEPFLOW_CACHE_BACKEND", "")
	dir := t.TempDir()
	if content != "" {
		if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"-C", dir, "--no-cache"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolve(t *testing.T) {
	dir := newProjectDir(t, testManifest)
	out, err := run(t, dir, "resolve")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, want := range []string{"Install Foo 1.2", "Install Bar 04t000000000001", "Deploy https://example.com/config.zip"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResolveJSON(t *testing.T) {
	dir := newProjectDir(t, testManifest)
	out, err := run(t, dir, "resolve", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var decls []map[string]any
	if err := json.Unmarshal([]byte(out), &decls); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(decls) != 3 || decls[0]["namespace"] != "foo" {
		t.Errorf("decls = %v", decls)
	}
}

func TestResolveFile(t *testing.T) {
	dir := newProjectDir(t, "")
	file := filepath.Join(dir, "deps.yml")
	if err := os.WriteFile(file, []byte("- namespace: baz\n  version: \"2.0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, dir, "resolve", "--file", file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Install baz 2.0") || strings.Contains(out, "Foo") {
		t.Errorf("output = %s", out)
	}

	_, err = run(t, dir, "resolve", "--file", filepath.Join(dir, "missing.yml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file: got %v", err)
	}
}

func TestResolveNoManifest(t *testing.T) {
	dir := newProjectDir(t, "")
	out, err := run(t, dir, "resolve")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Nothing to install") {
		t.Errorf("output = %s", out)
	}
}

func TestResolveUnknownStrategy(t *testing.T) {
	dir := newProjectDir(t, testManifest)
	_, err := run(t, dir, "resolve", "--strategy", "nope")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("got %v", err)
	}
}

func TestPlanGated(t *testing.T) {
	dir := newProjectDir(t, testManifest)
	snapshot := filepath.Join(dir, "dev.toml")
	if err := os.WriteFile(snapshot, []byte("name = \"dev\"\n\n[[package]]\nnamespace = \"foo\"\nversion = \"1.3\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, dir, "plan", "--installed", snapshot)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"for dev", "skip", "foo 1.2 or newer is installed", "install", "deploy"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPlanExport(t *testing.T) {
	dir := newProjectDir(t, testManifest)
	path := filepath.Join(dir, "plan.json")
	out, err := run(t, dir, "plan", "--format", "json", "-o", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("output = %s", out)
	}
	p, err := plan.ImportJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Steps) != 3 || p.Strategy != "production" {
		t.Errorf("plan = %+v", p)
	}

	if _, err := run(t, dir, "plan", "--format", "xml"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad format: got %v", err)
	}
}

func TestInstallDryRun(t *testing.T) {
	dir := newProjectDir(t, testManifest)
	snapshot := filepath.Join(dir, "dev.toml")
	if err := os.WriteFile(snapshot, []byte("name = \"dev\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	written := filepath.Join(dir, "after.toml")

	out, err := run(t, dir, "install", "--dry-run", "--installed", snapshot, "--write-installed", written)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "3 steps, 3 recorded calls against dev") {
		t.Errorf("output = %s", out)
	}

	after, err := plan.LoadSnapshot(written)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Packages()) != 2 {
		t.Errorf("packages = %+v", after.Packages())
	}

	// a second run against the written snapshot skips both packages
	out, err = run(t, dir, "install", "--dry-run", "--installed", written)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "(skipped)") != 2 {
		t.Errorf("output = %s", out)
	}
}

func TestInstallSavedPlan(t *testing.T) {
	dir := newProjectDir(t, testManifest)
	path := filepath.Join(dir, "plan.json")
	if _, err := run(t, dir, "plan", "--format", "json", "-o", path); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, dir, "install", "--dry-run", "--plan", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "against dry-run") {
		t.Errorf("output = %s", out)
	}
}

func TestInstallRequiresDryRun(t *testing.T) {
	dir := newProjectDir(t, testManifest)
	_, err := run(t, dir, "install")
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("got %v", err)
	}
}

func TestStrategies(t *testing.T) {
	dir := newProjectDir(t, testManifest)
	out, err := run(t, dir, "strategies")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "include_beta") || !strings.Contains(out, "latest_release") {
		t.Errorf("output = %s", out)
	}
	if !strings.Contains(out, "Resolvers") || !strings.Contains(out, "commit_status_previous_release_branch") {
		t.Errorf("registered resolvers missing:\n%s", out)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantErr  errors.Code
	}{
		{"valid", testManifest, ""},
		{"schema", "project:\n  package: 3\n", errors.ErrCodeInvalidManifest},
		{"dependency", "project:\n  dependencies:\n    - bogus: true\n", errors.ErrCodeInvalidDependency},
		{"strategy", "project:\n  dependency_resolutions:\n    resolution_strategies:\n      x: [nope]\n", errors.ErrCodeInvalidManifest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newProjectDir(t, tt.manifest)
			out, err := run(t, dir, "validate")
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v\n%s", err, out)
				}
				if !strings.Contains(out, "3 dependencies declared") {
					t.Errorf("output = %s", out)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %s", err, tt.wantErr)
			}
		})
	}

	dir := newProjectDir(t, "")
	if _, err := run(t, dir, "validate"); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing manifest: got %v", err)
	}
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"1.2", "1.3", "1.2 < 1.3"},
		{"1.3", "1.3 (Beta 2)", "1.3 > 1.3 (Beta 2)"},
		{"1.0", "1.0.0", "1.0 = 1.0.0"},
		{"1.1-Beta_4", "1.1 (Beta 3)", "1.1 (Beta 4) > 1.1 (Beta 3)"},
	}
	dir := newProjectDir(t, "")
	for _, tt := range tests {
		out, err := run(t, dir, "version-compare", tt.a, tt.b)
		if err != nil {
			t.Fatalf("%s vs %s: %v", tt.a, tt.b, err)
		}
		if strings.TrimSpace(out) != tt.want {
			t.Errorf("%s vs %s = %q, want %q", tt.a, tt.b, out, tt.want)
		}
	}

	if _, err := run(t, dir, "version-compare", "1.x", "1.2"); !errors.Is(err, errors.ErrCodeInvalidVersion) {
		t.Errorf("got %v", err)
	}
}

func TestReleaseValidatesInput(t *testing.T) {
	dir := newProjectDir(t, testManifest)
	tests := []struct {
		name string
		args []string
	}{
		{"short commit", []string{"--commit", "abc123"}},
		{"bad version id", []string{"--commit", strings.Repeat("a", 40), "--version-id", "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"release", "--repo", "https://github.com/acme/app", "--version", "1.2"}, tt.args...)
			_, err := run(t, dir, args...)
			if err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	dir := newProjectDir(t, "")
	out, err := run(t, dir, "completion", "bash")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "depflow") {
		t.Error("bash completion should mention the command name")
	}
}
