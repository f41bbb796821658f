package manifest

import "github.com/matzehuels/depflow/pkg/vcs"

// FileName is the project manifest file at a repository root.
const FileName = "depflow.yml"

// Manifest is the parsed content of a project manifest.
type Manifest struct {
	Project Project `yaml:"project" json:"project"`
}

// Project holds the project section of a manifest.
type Project struct {
	Name                  string           `yaml:"name,omitempty" json:"name,omitempty"`
	Package               Package          `yaml:"package,omitempty" json:"package,omitempty"`
	Git                   vcs.GitConfig    `yaml:"git,omitempty" json:"git,omitempty"`
	Dependencies          []map[string]any `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	DependencyResolutions Resolutions      `yaml:"dependency_resolutions,omitempty" json:"dependency_resolutions,omitempty"`
}

// Package describes the package a repository builds.
type Package struct {
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Namespace   string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	PackageType string `yaml:"package_type,omitempty" json:"package_type,omitempty"`
}

// Resolutions selects strategy sets for production and preproduction
// installs and may define or override named strategy sets.
type Resolutions struct {
	Production           string              `yaml:"production,omitempty" json:"production,omitempty"`
	Preproduction        string              `yaml:"preproduction,omitempty" json:"preproduction,omitempty"`
	ResolutionStrategies map[string][]string `yaml:"resolution_strategies,omitempty" json:"resolution_strategies,omitempty"`
}

// IsManaged reports whether the repository builds a managed package.
func (p Package) IsManaged() bool {
	return p.Namespace != "" && p.PackageType != "unlocked"
}
