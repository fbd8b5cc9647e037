package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// signalContext is replaced in tests
var signalContext = func(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newServeCmd() *cobra.Command {
	var port int
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the pngframe REST API: stream inspection, verification and
stripping, the chunk archive, and Prometheus metrics at /metrics.

Routes under /api/v1 require the X-API-Key header when server.api_key is set.

Examples:
  pngframe serve
  pngframe serve --port 9000 --bind 0.0.0.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := container.Config()
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("bind") {
				cfg.Server.Bind = bind
			}

			logger := container.Logger()
			if cfg.Server.APIKey == "" {
				logger.Warn().Msg("server.api_key is empty, API authentication is disabled")
			}

			store, err := container.OpenStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			starter := container.GetServerFactory().CreateServerStarter()
			return starter.StartServer(ctx, store, container.ServerConfig(), logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().StringVar(&bind, "bind", "127.0.0.1", "Address to bind to")
	return cmd
}
