// Package manifest reads and validates depflow project manifests.
//
// A manifest (depflow.yml) sits at the root of a repository and describes the
// package the repository builds, its git naming conventions, the
// dependencies it declares, and which resolution strategy sets to use:
//
//	project:
//	  package:
//	    name: Foo
//	    namespace: foo
//	  git:
//	    default_branch: main
//	    prefix_feature: feature/
//	  dependencies:
//	    - github: https://github.com/acme/base
//	  dependency_resolutions:
//	    production: latest_release
//
// Manifests are validated against an embedded JSON schema before decoding.
// Dependency declarations are left as raw maps; package deps parses them.
package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/vcs"
)

// Parse validates and decodes manifest data. source names the data in
// error messages.
func Parse(data []byte, source string) (*Manifest, error) {
	result, err := Validate(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "reading %s", source)
	}
	if !result.Valid {
		msgs := make([]string, len(result.Issues))
		for i, issue := range result.Issues {
			msgs[i] = issue.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidManifest, "%s: %s", source, strings.Join(msgs, "; "))
	}
	return parseTyped[Manifest](data, source)
}

func parseTyped[T any](data []byte, source string) (*T, error) {
	var m T
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parsing manifest %s", source)
	}
	return &m, nil
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest not found")
		}
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadDir reads the manifest at the root of dir.
func LoadDir(dir string) (*Manifest, error) {
	return Load(filepath.Join(dir, FileName))
}

// LoadRemote reads the manifest of repo as of ref. A repository without a
// manifest yields an error satisfying [vcs.IsNotFound].
func LoadRemote(ctx context.Context, repo vcs.Repository, ref string) (*Manifest, error) {
	data, err := repo.FileContents(ctx, FileName, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching %s from %s@%s: %w", FileName, repo.URL(), ref, err)
	}
	return Parse(data, repo.URL()+"/"+FileName+"@"+ref)
}
