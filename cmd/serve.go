package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tidyset-cli/internal/server"
	"github.com/KaramelBytes/tidyset-cli/internal/session"
)

var (
	srvAddr    string
	srvOrigins []string
	srvSource  sourceFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload/clean/report API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		eng, err := srvSource.newEngine()
		if err != nil {
			return err
		}
		addr := c.ListenAddr
		if cmd.Flags().Changed("addr") {
			addr = srvAddr
		}
		origins := c.AllowedOrigins
		if cmd.Flags().Changed("allow-origin") {
			origins = srvOrigins
		}

		srv := server.New(session.NewStore(eng, logger), server.Config{
			Addr:           addr,
			AllowedOrigins: origins,
			MaxUploadBytes: c.MaxUploadBytes(),
			PreviewRows:    c.PreviewRows,
			ScatterPoints:  c.ScatterPoints,
			Logger:         logger,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.Printf("tidyset API listening on http://%s\n", addr)
		logger.Debug("serve", zap.Strings("allowed_origins", origins))
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "127.0.0.1:5000", "listen address (overrides config)")
	serveCmd.Flags().StringSliceVar(&srvOrigins, "allow-origin", nil, "CORS origins allowed to call the API (overrides config)")
	srvSource.registerNumbers(serveCmd)
}
