package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/release"
	"github.com/matzehuels/depflow/pkg/vcs"
)

type releaseOptions struct {
	repo        string
	version     string
	versionID   string
	packageType string
	commit      string
	strategy    string
	summary     string
	body        string
	tagPrefix   string
	file        string
	noDeps      bool
}

// releaseCommand creates the release command.
func (c *CLI) releaseCommand() *cobra.Command {
	var opts releaseOptions

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Tag a commit and publish a release",
		Long: `Create an annotated tag for a package version and publish a release for it.

The tag message records the package version id, the package type and the
resolved dependencies, which is what resolvers read back when other
projects depend on this repository.

The commit defaults to HEAD of the project directory.`,
		Example: `  depflow release --repo https://github.com/acme/app --version 1.2 --version-id 04t000000000001AAA
  depflow release --repo https://github.com/acme/app --version "1.3 (Beta 1)" --package-type 2GP`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if opts.commit == "" {
				opts.commit = vcs.HeadCommit(c.projectDir)
			}
			if err := errors.ValidateCommitSHA(opts.commit); err != nil {
				return err
			}
			if opts.versionID != "" {
				if err := errors.ValidateVersionID(opts.versionID); err != nil {
					return err
				}
			}

			ws, err := c.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			var declared []deps.Dependency
			if !opts.noDeps {
				if declared, err = ws.declared(opts.file); err != nil {
					return err
				}
			}
			repo, err := ws.project.Repos.Repo(ctx, vcs.ProviderNameForURL(opts.repo), opts.repo)
			if err != nil {
				return err
			}

			res, err := release.Create(ctx, ws.project, repo, release.Options{
				Version:      opts.version,
				VersionID:    opts.versionID,
				PackageType:  opts.packageType,
				Commit:       opts.commit,
				TagPrefix:    opts.tagPrefix,
				Summary:      opts.summary,
				Body:         opts.body,
				Dependencies: declared,
				Strategy:     opts.strategy,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "Released %s", StyleValue.Render(res.Release.Name))
			printKeyValue(out, "Tag", res.TagName)
			if !res.TagCreated {
				printWarning(out, "Tag %s already existed and was reused", res.TagName)
			}
			printKeyValue(out, "Dependencies", StyleNumber.Render(strconv.Itoa(len(res.Dependencies))))
			if res.Release.URL != "" {
				printKeyValue(out, "URL", res.Release.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.repo, "repo", "", "repository URL to release (required)")
	cmd.Flags().StringVar(&opts.version, "version", "", "package version, e.g. 1.2 or \"1.3 (Beta 1)\"")
	cmd.Flags().StringVar(&opts.versionID, "version-id", "", "package version id (04t...)")
	cmd.Flags().StringVar(&opts.packageType, "package-type", "", "package type recorded in the tag (1GP or 2GP)")
	cmd.Flags().StringVar(&opts.commit, "commit", "", "commit to tag (default HEAD)")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", deps.AliasProduction, "strategy set used to resolve recorded dependencies")
	cmd.Flags().StringVar(&opts.summary, "summary", "", "first section of the tag message")
	cmd.Flags().StringVar(&opts.body, "body", "", "release description")
	cmd.Flags().StringVar(&opts.tagPrefix, "tag-prefix", "", "override the release/beta tag prefix")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "YAML list of dependency declarations")
	cmd.Flags().BoolVar(&opts.noDeps, "no-dependencies", false, "do not record dependencies in the tag message")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("version")

	return cmd
}
