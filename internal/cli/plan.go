package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depflow/pkg/deps"
	"github.com/matzehuels/depflow/pkg/errors"
	"github.com/matzehuels/depflow/pkg/plan"
)

type planOptions struct {
	strategy  string
	file      string
	installed string
	format    string
	output    string
}

// planCommand creates the plan command.
func (c *CLI) planCommand() *cobra.Command {
	var opts planOptions

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build an install plan for the project's dependencies",
		Long: `Resolve and flatten the declared dependencies into an install plan.

With --installed the plan is checked against a snapshot of installed
packages and steps that are already satisfied are marked as skipped.

Output formats: text, json, yaml, toml, dot, svg. A JSON plan can be
executed later with "depflow install --plan".`,
		Example: `  depflow plan
  depflow plan --installed dev.toml
  depflow plan --format json -o plan.json
  depflow plan --format svg -o plan.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := plan.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ws, err := c.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			p, err := c.buildPlan(ctx, ws, opts.file, opts.strategy)
			if err != nil {
				return err
			}
			if opts.installed != "" {
				target, err := plan.LoadSnapshot(opts.installed)
				if err != nil {
					return err
				}
				if err := p.Gate(ctx, target); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if opts.output == "" {
				return plan.Write(p, format, out)
			}
			if err := plan.Export(p, format, opts.output); err != nil {
				return err
			}
			printSuccess(out, "Plan %s with %d steps", p.ID, len(p.Steps))
			printFile(out, opts.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", deps.AliasProduction, "strategy set, alias or single strategy")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "YAML list of dependency declarations")
	cmd.Flags().StringVar(&opts.installed, "installed", "", "TOML snapshot of installed packages")
	cmd.Flags().StringVar(&opts.format, "format", string(plan.FormatText), "output format")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the plan to a file")

	return cmd
}

func (c *CLI) buildPlan(ctx context.Context, ws *workspace, file, strategy string) (*plan.Plan, error) {
	declared, err := ws.declared(file)
	if err != nil {
		return nil, err
	}
	prog := newProgress(loggerFromContext(ctx))
	p, err := plan.Build(ctx, ws.project, declared, strategy)
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Planned %d steps", len(p.Steps)))
	return p, nil
}

type installOptions struct {
	planOptions
	dryRun         bool
	planFile       string
	writeInstalled string
}

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var opts installOptions

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Execute an install plan",
		Long: `Execute an install plan step by step.

Depflow does not talk to package targets itself. With --dry-run every
install, deployment and flow run is recorded against the snapshot given
with --installed, which can be written back with --write-installed.`,
		Example: `  depflow install --dry-run --installed dev.toml
  depflow install --dry-run --plan plan.json --write-installed dev.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.dryRun {
				return errors.New(errors.ErrCodeUnsupported, "no installer is configured; use --dry-run")
			}

			ctx := cmd.Context()
			ws, err := c.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			var p *plan.Plan
			if opts.planFile != "" {
				p, err = plan.ImportJSON(opts.planFile)
			} else {
				p, err = c.buildPlan(ctx, ws, opts.file, opts.strategy)
			}
			if err != nil {
				return err
			}

			target := plan.NewSnapshot("dry-run")
			if opts.installed != "" {
				if target, err = plan.LoadSnapshot(opts.installed); err != nil {
					return err
				}
			}

			recorder := &plan.Recorder{}
			project := *ws.project
			project.Installer = recorder
			installOpts := deps.DefaultInstallOptions()

			out := cmd.OutOrStdout()
			results, err := p.Execute(ctx, &project, target, &installOpts)
			for _, r := range results {
				switch {
				case r.Err != nil:
					printError(out, "%s", r.Name)
				case r.Skipped:
					printInfo(out, "%s %s", r.Name, StyleDim.Render("(skipped)"))
				default:
					printSuccess(out, "%s", r.Name)
				}
			}
			if err != nil {
				return err
			}
			printDetail(out, "%d steps, %d recorded calls against %s", len(results), len(recorder.Calls()), target.Name())

			if opts.writeInstalled != "" {
				if err := writeSnapshot(target, opts.writeInstalled); err != nil {
					return err
				}
				printFile(out, opts.writeInstalled)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "record installs instead of performing them")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", deps.AliasProduction, "strategy set, alias or single strategy")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "YAML list of dependency declarations")
	cmd.Flags().StringVar(&opts.planFile, "plan", "", "execute a saved JSON plan instead of planning")
	cmd.Flags().StringVar(&opts.installed, "installed", "", "TOML snapshot of installed packages")
	cmd.Flags().StringVar(&opts.writeInstalled, "write-installed", "", "write the resulting snapshot to a file")

	return cmd
}

func writeSnapshot(s *plan.Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
