package plan

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/version"
)

// Snapshot is a target backed by a recorded list of installed packages.
// It is used to plan and dry-run installs without a live environment.
//
// The file form is TOML:
//
//	name = "dev"
//
//	[[package]]
//	namespace = "foo"
//	version = "1.2"
//	id = "04t000000000000"
type Snapshot struct {
	mu       sync.Mutex
	name     string
	packages []deps.InstalledPackage
}

type snapshotFile struct {
	Name     string            `toml:"name"`
	Packages []snapshotPackage `toml:"package"`
}

type snapshotPackage struct {
	Namespace string `toml:"namespace,omitempty"`
	Version   string `toml:"version,omitempty"`
	ID        string `toml:"id,omitempty"`
}

// NewSnapshot returns a snapshot target with the given packages installed.
func NewSnapshot(name string, pkgs ...deps.InstalledPackage) *Snapshot {
	return &Snapshot{name: name, packages: append([]deps.InstalledPackage(nil), pkgs...)}
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "snapshot %s", path)
		}
		return nil, err
	}
	defer f.Close()
	return ParseSnapshot(f)
}

// ParseSnapshot decodes a snapshot from r.
func ParseSnapshot(r io.Reader) (*Snapshot, error) {
	var file snapshotFile
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse snapshot")
	}
	s := &Snapshot{name: file.Name}
	if s.name == "" {
		s.name = "snapshot"
	}
	for i, p := range file.Packages {
		if p.Namespace == "" && p.ID == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "snapshot package %d: namespace or id is required", i+1)
		}
		var number version.Version
		if p.Version != "" {
			v, err := version.Parse(p.Version)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidVersion, err, "snapshot package %d", i+1)
			}
			number = v
		}
		s.packages = append(s.packages, deps.InstalledPackage{
			Namespace: p.Namespace,
			Version:   version.Info{ID: p.ID, Number: number},
		})
	}
	return s, nil
}

// Encode writes the snapshot in its file form.
func (s *Snapshot) Encode(w io.Writer) error {
	s.mu.Lock()
	file := snapshotFile{Name: s.name}
	for _, p := range s.packages {
		sp := snapshotPackage{Namespace: p.Namespace, ID: p.Version.ID}
		if !p.Version.Number.IsZero() {
			sp.Version = p.Version.Number.String()
		}
		file.Packages = append(file.Packages, sp)
	}
	s.mu.Unlock()
	return toml.NewEncoder(w).Encode(file)
}

func (s *Snapshot) Name() string { return s.name }

func (s *Snapshot) InstalledPackages(context.Context) (deps.Installed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deps.IndexInstalled(s.packages), nil
}

// Packages returns a copy of the installed package list.
func (s *Snapshot) Packages() []deps.InstalledPackage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]deps.InstalledPackage(nil), s.packages...)
}

func (s *Snapshot) add(p deps.InstalledPackage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.packages {
		if p.Namespace != "" && existing.Namespace == p.Namespace {
			s.packages[i] = p
			return
		}
	}
	s.packages = append(s.packages, p)
}

// Call is one installer invocation seen by a [Recorder].
type Call struct {
	Method    string               `json:"method"`
	Namespace string               `json:"namespace,omitempty"`
	Version   string               `json:"version,omitempty"`
	VersionID string               `json:"version_id,omitempty"`
	Source    *deps.MetadataSource `json:"source,omitempty"`
	Flow      *deps.FlowSource     `json:"flow,omitempty"`
	Deploy    *deps.DeployOptions  `json:"deploy,omitempty"`
	Options   *deps.InstallOptions `json:"options,omitempty"`
}

// Recorder is an installer that only records what it is asked to do. When
// the target is a [Snapshot], package installs are applied to it so later
// steps see them.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *Recorder) InstallByNamespaceVersion(_ context.Context, target deps.Target, namespace, v string, opts deps.InstallOptions, _ deps.RetryOptions) error {
	opts.Password = ""
	r.record(Call{Method: "install", Namespace: namespace, Version: v, Options: &opts})
	if s, ok := target.(*Snapshot); ok {
		number, err := version.Parse(v)
		if err != nil {
			return err
		}
		s.add(deps.InstalledPackage{Namespace: namespace, Version: version.Info{Number: number}})
	}
	return nil
}

func (r *Recorder) InstallByVersionID(_ context.Context, target deps.Target, versionID string, opts deps.InstallOptions, _ deps.RetryOptions) error {
	opts.Password = ""
	r.record(Call{Method: "install", VersionID: versionID, Options: &opts})
	if s, ok := target.(*Snapshot); ok {
		s.add(deps.InstalledPackage{Version: version.Info{ID: versionID}})
	}
	return nil
}

func (r *Recorder) DeployMetadata(_ context.Context, _ deps.Target, src deps.MetadataSource, opts deps.DeployOptions) error {
	r.record(Call{Method: "deploy", Source: &src, Deploy: &opts})
	return nil
}

func (r *Recorder) RunFlow(_ context.Context, _ deps.Target, src deps.FlowSource, opts deps.DeployOptions) error {
	r.record(Call{Method: "run_flow", Flow: &src, Deploy: &opts})
	return nil
}
