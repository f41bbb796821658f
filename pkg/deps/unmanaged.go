package deps

import (
	"context"
	"fmt"

	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/vcs"
)

// unmanagedOptions are the deployment flags shared by unmanaged variants.
type unmanagedOptions struct {
	NamespaceInject string `json:"namespace_inject,omitempty"`
	NamespaceStrip  string `json:"namespace_strip,omitempty"`
	Unmanaged       *bool  `json:"unmanaged,omitempty"`
}

// effectiveUnmanaged decides whether metadata deploys unmanaged. An explicit
// flag wins. Otherwise, with namespace_inject set, the metadata deploys
// managed exactly when that namespace is installed on the target. Without
// either it deploys unmanaged.
func (o unmanagedOptions) effectiveUnmanaged(installed Installed) bool {
	if o.Unmanaged != nil {
		return *o.Unmanaged
	}
	if o.NamespaceInject != "" {
		return !installed.Has(o.NamespaceInject)
	}
	return true
}

func (o unmanagedOptions) deployOptions(ctx context.Context, target Target) (DeployOptions, error) {
	var installed Installed
	if o.Unmanaged == nil && o.NamespaceInject != "" {
		var err error
		installed, err = target.InstalledPackages(ctx)
		if err != nil {
			return DeployOptions{}, fmt.Errorf("listing installed packages on %s: %w", target.Name(), err)
		}
	}
	return DeployOptions{
		Unmanaged:       o.effectiveUnmanaged(installed),
		NamespaceInject: o.NamespaceInject,
		NamespaceStrip:  o.NamespaceStrip,
	}, nil
}

// UnmanagedVcsRefDependency deploys metadata from a repository at a fixed
// ref, optionally from a subfolder.
type UnmanagedVcsRefDependency struct {
	VCS       string `json:"vcs"`
	URL       string `json:"url"`
	Ref       string `json:"ref"`
	Subfolder string `json:"subfolder,omitempty"`
	unmanagedOptions
}

func (d *UnmanagedVcsRefDependency) location() string {
	if d.Subfolder != "" {
		return d.URL + "/" + d.Subfolder
	}
	return d.URL
}

func (d *UnmanagedVcsRefDependency) Name() string { return "Deploy " + d.location() }

func (d *UnmanagedVcsRefDependency) Description() string {
	return fmt.Sprintf("%s @%s", d.location(), d.Ref)
}

func (d *UnmanagedVcsRefDependency) Kind() Kind { return KindUnmanagedRef }

func (d *UnmanagedVcsRefDependency) Key() string { return makeKey(d.Kind(), d) }

func (d *UnmanagedVcsRefDependency) validate() error {
	if d.Ref == "" {
		return errors.Validation("ref is required for %s", d.URL)
	}
	if _, err := vcs.ParseRepoURL(d.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDependency, err, "invalid repository URL")
	}
	if d.Subfolder != "" {
		return errors.ValidatePath(d.Subfolder)
	}
	return nil
}

// Install deploys the referenced metadata.
func (d *UnmanagedVcsRefDependency) Install(ctx context.Context, project *Project, target Target, _ *InstallOptions) error {
	opts, err := d.deployOptions(ctx, target)
	if err != nil {
		return err
	}
	installer, err := project.installer()
	if err != nil {
		return err
	}
	project.logger().Info("deploying", "source", d.Description(), "unmanaged", opts.Unmanaged, "target", target.Name())
	return installer.DeployMetadata(ctx, target, MetadataSource{
		VCS:       d.VCS,
		RepoURL:   d.URL,
		Ref:       d.Ref,
		Subfolder: d.Subfolder,
	}, opts)
}

// UnmanagedZipURLDependency deploys metadata from a zip archive.
type UnmanagedZipURLDependency struct {
	ZipURL    string `json:"zip_url"`
	Subfolder string `json:"subfolder,omitempty"`
	unmanagedOptions
}

func (d *UnmanagedZipURLDependency) location() string {
	if d.Subfolder != "" {
		return fmt.Sprintf("%s /%s", d.ZipURL, d.Subfolder)
	}
	return d.ZipURL
}

func (d *UnmanagedZipURLDependency) Name() string        { return "Deploy " + d.location() }
func (d *UnmanagedZipURLDependency) Description() string { return d.location() }
func (d *UnmanagedZipURLDependency) Kind() Kind          { return KindUnmanagedZip }
func (d *UnmanagedZipURLDependency) Key() string         { return makeKey(d.Kind(), d) }

func (d *UnmanagedZipURLDependency) validate() error {
	if err := errors.ValidateURL(d.ZipURL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDependency, err, "invalid zip_url")
	}
	if d.Subfolder != "" {
		return errors.ValidatePath(d.Subfolder)
	}
	return nil
}

// Install deploys the archive contents.
func (d *UnmanagedZipURLDependency) Install(ctx context.Context, project *Project, target Target, _ *InstallOptions) error {
	opts, err := d.deployOptions(ctx, target)
	if err != nil {
		return err
	}
	installer, err := project.installer()
	if err != nil {
		return err
	}
	project.logger().Info("deploying", "source", d.Description(), "unmanaged", opts.Unmanaged, "target", target.Name())
	return installer.DeployMetadata(ctx, target, MetadataSource{
		ZipURL:    d.ZipURL,
		Subfolder: d.Subfolder,
	}, opts)
}

// UnmanagedVcsDependencyFlow installs by running a named flow fetched from
// a repository commit instead of deploying metadata directly.
type UnmanagedVcsDependencyFlow struct {
	VCS      string `json:"vcs"`
	URL      string `json:"url"`
	Commit   string `json:"commit"`
	FlowName string `json:"flow_name"`
	unmanagedOptions
}

func (d *UnmanagedVcsDependencyFlow) Name() string {
	return fmt.Sprintf("Deploy %s Flow: %s", d.URL, d.FlowName)
}

func (d *UnmanagedVcsDependencyFlow) Description() string {
	return fmt.Sprintf("%s Flow: %s @%s", d.URL, d.FlowName, d.Commit)
}

func (d *UnmanagedVcsDependencyFlow) Kind() Kind  { return KindUnmanagedFlow }
func (d *UnmanagedVcsDependencyFlow) Key() string { return makeKey(d.Kind(), d) }

func (d *UnmanagedVcsDependencyFlow) validate() error {
	if d.FlowName == "" {
		return errors.Validation("flow_name is required for %s", d.URL)
	}
	if _, err := vcs.ParseRepoURL(d.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDependency, err, "invalid repository URL")
	}
	return errors.ValidateCommitSHA(d.Commit)
}

// Install runs the flow against target.
func (d *UnmanagedVcsDependencyFlow) Install(ctx context.Context, project *Project, target Target, _ *InstallOptions) error {
	opts, err := d.deployOptions(ctx, target)
	if err != nil {
		return err
	}
	installer, err := project.installer()
	if err != nil {
		return err
	}
	project.logger().Info("deploying dependency flow", "source", d.Description(), "target", target.Name())
	return installer.RunFlow(ctx, target, FlowSource{
		VCS:      d.VCS,
		RepoURL:  d.URL,
		Commit:   d.Commit,
		FlowName: d.FlowName,
	}, opts)
}
