package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depflow/pkg/deps"
)

type resolveOptions struct {
	strategy string
	file     string
	json     bool
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve and flatten the project's dependencies",
		Long: `Resolve every declared dependency with the selected strategy set and print
the flattened install order.

Dependencies are read from the project manifest, or from a YAML list given
with --file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := c.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			declared, err := ws.declared(opts.file)
			if err != nil {
				return err
			}
			strategies, err := ws.project.Strategies(opts.strategy)
			if err != nil {
				return err
			}

			prog := newProgress(loggerFromContext(ctx))
			static, err := deps.GetStaticDependencies(ctx, ws.project, declared, strategies)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Resolved %d dependencies", len(static)))

			out := cmd.OutOrStdout()
			if opts.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(static)
			}
			if len(static) == 0 {
				printInfo(out, "Nothing to install")
				return nil
			}
			for i, d := range static {
				printStep(out, i+1, "", d.Name(), d.Description())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", deps.AliasProduction, "strategy set, alias or single strategy")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "YAML list of dependency declarations")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the resolved dependencies as JSON")

	return cmd
}

// strategiesCommand creates the strategies command.
func (c *CLI) strategiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the resolution strategy sets of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			sets := deps.DefaultStrategySets()
			maps.Copy(sets, ws.project.StrategySets)
			aliases := deps.DefaultAliases()
			maps.Copy(aliases, ws.project.Aliases)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, StyleTitle.Render("Aliases"))
			for _, name := range slices.Sorted(maps.Keys(aliases)) {
				printKeyValue(out, name, aliases[name])
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, StyleTitle.Render("Strategy sets"))
			for _, name := range slices.Sorted(maps.Keys(sets)) {
				names := make([]string, len(sets[name]))
				for i, s := range sets[name] {
					names[i] = string(s)
				}
				fmt.Fprintln(out, StyleValue.Render(name))
				printDetail(out, "%s", strings.Join(names, " → "))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, StyleTitle.Render("Resolvers"))
			for _, s := range ws.project.Resolvers.Strategies() {
				fmt.Fprintln(out, StyleValue.Render(string(s)))
			}
			return nil
		},
	}
}
