package plan_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/plan"
	"github.com/matzehuels/depflow/pkg/version"
)

const snapshotTOML = `name = "dev"

[[package]]
namespace = "foo"
version = "1.2"
id = "04t000000000001"

[[package]]
namespace = "bar"
version = "1.1 (Beta 4)"

[[package]]
id = "04t000000000002"
`

func TestParseSnapshot(t *testing.T) {
	s, err := plan.ParseSnapshot(strings.NewReader(snapshotTOML))
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "dev" || len(s.Packages()) != 3 {
		t.Fatalf("snapshot = %s %+v", s.Name(), s.Packages())
	}
	idx, _ := s.InstalledPackages(context.Background())
	if !idx.Satisfies("foo", version.MustParse("1.1")) || idx.Satisfies("bar", version.MustParse("1.1")) {
		t.Errorf("index = %v", idx)
	}
	if !idx.Has("04t000000000002") {
		t.Error("version id only package missing")
	}
}

func TestParseSnapshotErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code errors.Code
	}{
		{"syntax", "name = ", errors.ErrCodeInvalidInput},
		{"empty package", "[[package]]\nversion = \"1.0\"\n", errors.ErrCodeInvalidInput},
		{"bad version", "[[package]]\nnamespace = \"foo\"\nversion = \"one\"\n", errors.ErrCodeInvalidVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.ParseSnapshot(strings.NewReader(tt.in))
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestSnapshotEncode(t *testing.T) {
	s, err := plan.ParseSnapshot(strings.NewReader(snapshotTOML))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	again, err := plan.ParseSnapshot(&buf)
	if err != nil {
		t.Fatalf("%v\n%s", err, buf.String())
	}
	if len(again.Packages()) != 3 || again.Packages()[1].Version.Number.String() != "1.1 (Beta 4)" {
		t.Errorf("packages = %+v", again.Packages())
	}
}

func TestLoadSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "installed.toml")
	if err := os.WriteFile(path, []byte(snapshotTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := plan.LoadSnapshot(path); err != nil {
		t.Fatal(err)
	}
	if _, err := plan.LoadSnapshot(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestRecorderRedactsPassword(t *testing.T) {
	rec := &plan.Recorder{}
	target := plan.NewSnapshot("dev")
	opts := deps.DefaultInstallOptions()
	opts.Password = "secret"
	err := rec.InstallByVersionID(context.Background(), target, "04t000000000003", opts, deps.DefaultRetryOptions)
	if err != nil {
		t.Fatal(err)
	}
	calls := rec.Calls()
	if len(calls) != 1 || calls[0].Options.Password != "" {
		t.Errorf("calls = %+v", calls)
	}
	idx, _ := target.InstalledPackages(context.Background())
	if !idx.Has("04t000000000003") {
		t.Error("snapshot not updated")
	}
}
