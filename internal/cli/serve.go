package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/stackaudit/stackaudit/internal/api"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server.

POST /api/v1/aggregate accepts aggregation requests and runs them in the
background; GET /api/v1/reports/{id} returns stored reports. The server
needs a reachable report store and graph metadata store, both taken from
the configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.Server.ListenAddr = listenAddr
			}

			agg, reports, err := c.newAggregator(cmd.Context(), cfg, true, false)
			if err != nil {
				return err
			}
			defer reports.Close(context.Background())

			server := &api.Server{Agg: agg, Store: reports, Logger: c.Logger}
			return server.ListenAndServe(cmd.Context(), cfg.Server.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides config)")

	return cmd
}
