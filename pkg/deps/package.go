package deps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/version"
)

// PackageNamespaceVersionDependency installs a managed package release by
// namespace and version number.
type PackageNamespaceVersionDependency struct {
	Namespace       string `json:"namespace"`
	Version         string `json:"version"`
	PackageName     string `json:"package_name,omitempty"`
	PasswordEnvName string `json:"password_env_name,omitempty"`
}

// Package returns the display name of the package.
func (d *PackageNamespaceVersionDependency) Package() string {
	return orDefault(d.PackageName, d.Namespace)
}

func (d *PackageNamespaceVersionDependency) Name() string {
	return fmt.Sprintf("Install %s %s", d.Package(), d.Version)
}

func (d *PackageNamespaceVersionDependency) Description() string {
	return fmt.Sprintf("%s %s", d.Package(), d.Version)
}

func (d *PackageNamespaceVersionDependency) Kind() Kind { return KindPackageVersion }

func (d *PackageNamespaceVersionDependency) Key() string { return makeKey(d.Kind(), d) }

func (d *PackageNamespaceVersionDependency) validate() error {
	if d.Namespace == "" || d.Version == "" {
		return errors.Validation("namespace and version are required")
	}
	if _, err := version.Parse(d.Version); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDependency, err, "invalid version for %s", d.Namespace)
	}
	return nil
}

// Install skips when the target already has a version of the namespace that
// is at least d.Version.
func (d *PackageNamespaceVersionDependency) Install(ctx context.Context, project *Project, target Target, opts *InstallOptions) error {
	want, err := version.Parse(d.Version)
	if err != nil {
		return err
	}
	installed, err := target.InstalledPackages(ctx)
	if err != nil {
		return fmt.Errorf("listing installed packages on %s: %w", target.Name(), err)
	}

	logger := project.logger()
	if installed.Satisfies(d.Namespace, want) {
		logger.Info("already installed, skipping", "package", d.Package(), "version", d.Version, "target", target.Name())
		return nil
	}

	logger.Info("installing", "package", d.Package(), "version", d.Version, "target", target.Name())
	installer, err := project.installer()
	if err != nil {
		return err
	}
	return installer.InstallByNamespaceVersion(ctx, target, d.Namespace, d.Version, installOptions(opts, d.PasswordEnvName), DefaultRetryOptions)
}

// PackageVersionIDDependency installs a package version by its opaque id.
type PackageVersionIDDependency struct {
	VersionID       string `json:"version_id"`
	VersionNumber   string `json:"version_number,omitempty"`
	PackageName     string `json:"package_name,omitempty"`
	PasswordEnvName string `json:"password_env_name,omitempty"`
}

// Package returns the display name of the package.
func (d *PackageVersionIDDependency) Package() string {
	return orDefault(d.PackageName, "Unknown Package")
}

func (d *PackageVersionIDDependency) Name() string {
	return fmt.Sprintf("Install %s %s", d.Package(), d.VersionID)
}

func (d *PackageVersionIDDependency) Description() string {
	if d.VersionNumber != "" {
		return fmt.Sprintf("%s %s (%s)", d.Package(), d.VersionNumber, d.VersionID)
	}
	return fmt.Sprintf("%s %s", d.Package(), d.VersionID)
}

func (d *PackageVersionIDDependency) Kind() Kind { return KindPackageVersionID }

func (d *PackageVersionIDDependency) Key() string { return makeKey(d.Kind(), d) }

func (d *PackageVersionIDDependency) validate() error {
	return errors.ValidateVersionID(d.VersionID)
}

// Install skips when the version id is already installed on target.
func (d *PackageVersionIDDependency) Install(ctx context.Context, project *Project, target Target, opts *InstallOptions) error {
	installed, err := target.InstalledPackages(ctx)
	if err != nil {
		return fmt.Errorf("listing installed packages on %s: %w", target.Name(), err)
	}

	logger := project.logger()
	if installed.Has(d.VersionID) {
		logger.Info("already installed, skipping", "package", d.Package(), "version_id", d.VersionID, "target", target.Name())
		return nil
	}

	logger.Info("installing", "package", d.Package(), "version_id", d.VersionID, "target", target.Name())
	installer, err := project.installer()
	if err != nil {
		return err
	}
	return installer.InstallByVersionID(ctx, target, d.VersionID, installOptions(opts, d.PasswordEnvName), DefaultRetryOptions)
}

// installOptions copies opts (or the defaults) and fills the password from
// passwordEnv when it is set.
func installOptions(opts *InstallOptions, passwordEnv string) InstallOptions {
	o := DefaultInstallOptions()
	if opts != nil {
		o = *opts
	}
	if passwordEnv != "" {
		o.Password = os.Getenv(passwordEnv)
	}
	return o
}

func (p *Project) installer() (Installer, error) {
	if p == nil || p.Installer == nil {
		return nil, errors.New(errors.ErrCodeInternal, "no installer configured")
	}
	return p.Installer, nil
}

// makeKey renders a structural identity for v, which must be a plain struct
// pointer with JSON tags.
func makeKey(kind Kind, v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return string(kind) + ":" + fmt.Sprintf("%+v", v)
	}
	return string(kind) + ":" + string(data)
}
