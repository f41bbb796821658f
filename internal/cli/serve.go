package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/depflow/internal/api"
	"github.com/matzehuels/depflow/pkg/cache"
)

type serveOptions struct {
	addr      string
	keyPrefix string
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planning API over HTTP",
		Long: `Serve the planning API.

Every request is resolved in the context of the project directory: its git
conventions and strategy sets apply, and the request may select the branch
that commit status strategies resolve against. Plans are cached in the
configured cache backend, which should be redis when several servers run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := c.openWorkspace(ctx)
			if err != nil {
				return err
			}
			defer ws.Close()

			addr := opts.addr
			if addr == "" {
				addr = ws.cfg.API.Addr
			}
			var keyer cache.Keyer = cache.NewDefaultKeyer()
			if opts.keyPrefix != "" {
				keyer = cache.NewScopedKeyer(keyer, opts.keyPrefix)
			}

			srv := api.New(api.Config{
				Project: ws.project,
				Cache:   ws.cache,
				Keyer:   keyer,
				Logger:  loggerFromContext(ctx),
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	cmd.Flags().StringVar(&opts.keyPrefix, "key-prefix", "", "prefix for every cache key written by this server")

	return cmd
}
