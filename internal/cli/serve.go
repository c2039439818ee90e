package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gridroute/internal/server"
	"github.com/matzehuels/gridroute/pkg/cache"
)

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		cacheSpec string
		prefix    string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the routing HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, cacheSpec)
			if err != nil {
				return err
			}
			defer runner.Close()
			if prefix != "" {
				runner.Keyer = cache.NewScopedKeyer(runner.Keyer, prefix)
			}

			printer{cmd.OutOrStdout()}.info("Serving on %s", addr)
			return server.New(runner, c.Logger, timeout).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&cacheSpec, "cache", "file", "cache backend: file, none, redis://..., mongodb://...")
	cmd.Flags().StringVar(&prefix, "cache-prefix", "", "namespace for cache keys shared with other deployments")
	cmd.Flags().DurationVar(&timeout, "timeout", server.DefaultRequestTimeout, "per-request routing timeout")

	return cmd
}
