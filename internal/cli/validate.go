package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/manifest"
	"github.com/matzehuels/depflow/pkg/version"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [manifest]",
		Short: "Validate a project manifest and its dependency declarations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(c.projectDir, manifest.FileName)
			if len(args) == 1 {
				path = args[0]
			}
			data, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					return errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest not found")
				}
				return err
			}

			out := cmd.OutOrStdout()
			result, err := manifest.Validate(data)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidManifest, err, "reading %s", path)
			}
			if !result.Valid {
				for _, issue := range result.Issues {
					printError(out, "%s", issue)
				}
				return errors.New(errors.ErrCodeInvalidManifest, "%s has %d schema issues", path, len(result.Issues))
			}

			m, err := manifest.Parse(data, path)
			if err != nil {
				return err
			}
			declared, err := deps.ParseDependencies(m.Project.Dependencies)
			if err != nil {
				printError(out, "%s", errors.UserMessage(err))
				return err
			}
			if err := (&deps.Project{}).ApplyManifest(m); err != nil {
				printError(out, "%s", errors.UserMessage(err))
				return err
			}

			printSuccess(out, "%s is valid", path)
			printDetail(out, "%d dependencies declared", len(declared))
			return nil
		},
	}
}

// compareCommand creates the version-compare command.
func (c *CLI) compareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version-compare <a> <b>",
		Short: "Compare two package version numbers",
		Long: `Compare two package version numbers and print their ordering.

Versions use the package format: "1.2", "1.2.3" or "1.3 (Beta 1)". A beta
sorts before the release of the same number.`,
		Example: `  depflow version-compare 1.2 "1.3 (Beta 1)"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := version.Parse(args[0])
			if err != nil {
				return err
			}
			b, err := version.Parse(args[1])
			if err != nil {
				return err
			}
			op := "="
			switch a.Compare(b) {
			case -1:
				op = "<"
			case 1:
				op = ">"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", a, op, b)
			return nil
		},
	}
}
