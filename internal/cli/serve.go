package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/monitoring"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/server"
)

func (a *App) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and HTTP API",
		Long: `Serve the upload page and the JSON API:

  GET  /                 web UI
  POST /api/analyze      multipart upload, field "video"
  POST /api/analyze-url  {"url": "..."}
  GET  /health           liveness
  GET  /metrics          Prometheus metrics
  GET  /swagger/         API docs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.debug {
				gin.SetMode(gin.ReleaseMode)
			}

			level := monitoring.ParseLevel(a.cfg.Log.Level)
			if a.debug {
				level = slog.LevelDebug
			}
			logger := monitoring.NewLoggerWithLevel(os.Stdout, level)
			slog.SetDefault(logger.Logger)

			srv, err := server.New(a.cfg, server.WithLogger(logger))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :5000)")
	cmd.Flags().String("upload-dir", "", "directory for uploaded videos")
	cmd.Flags().Bool("keep-uploads", false, "keep uploaded files after scoring")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("upload.dir", cmd.Flags().Lookup("upload-dir"))
	_ = a.v.BindPFlag("upload.keep", cmd.Flags().Lookup("keep-uploads"))

	return cmd
}
