package serve

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"audio-transcriber/internal/app"
)

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP transcription API",
	Long: `Start the HTTP transcription API.

- POST /transcribe with a multipart "file" field
- GET /api/v1/providers, /health, /metrics and /swagger/index.html
- Stops gracefully on SIGINT or SIGTERM`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, logger, err := app.Bootstrap(configPath, verbose)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv, err := app.InitializeServer(ctx, cfg, logger)
		if err != nil {
			logger.Error("Failed to initialize server", zap.Error(err))
			return err
		}
		return srv.Run(ctx)
	},
}
