package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/depflow/pkg/buildinfo"
)

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Depflow resolves, flattens and installs project dependencies",
		Long: `Depflow resolves the dependencies a project declares to concrete package
versions and metadata deployments, flattens them into install order and
records releases so that other projects can depend on them.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&c.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/depflow/config.yaml)")
	flags.StringVarP(&c.projectDir, "project-dir", "C", ".", "project repository root")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the response cache")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.installCommand())
	root.AddCommand(c.releaseCommand())
	root.AddCommand(c.strategiesCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.compareCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}
