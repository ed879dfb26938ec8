package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/novelparser/internal/progress"
	"github.com/jackzampolin/novelparser/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the novelparser server",
	Long: `Start the novelparser HTTP server.

The server exposes the analysis pipeline over HTTP and streams progress
events and model output over a websocket:
  - /health          - Basic server health check
  - /api/novels      - Novels, chapters, analysis and summaries
  - /ws/progress     - Live progress (?novel_id= filters one novel)

On shutdown (Ctrl+C or SIGTERM) no new chapters are dispatched; chapters
already waiting on the model finish first.

Examples:
  novelparser serve                    # Start on the configured port (8080)
  novelparser serve --port 3000        # Start on custom port
  novelparser serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		hub := progress.NewHub(nil)
		a, err := newApp(ctx, hub)
		if err != nil {
			return err
		}
		defer a.Close()
		a.services.Hub = hub

		cfg := a.config.Get()
		host, port := cfg.Server.Host, cfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		a.config.WatchConfig()

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			Services:      a.services,
			ConfigManager: a.config,
			Logger:        a.logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
