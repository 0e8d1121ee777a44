// =============================================================================
// Loyalty Normalizer - Serve Command
// =============================================================================
//
// The 'serve' command starts the HTTP service: upload a file, process it
// with a column mapping, download the results.
//
// COMMAND USAGE:
//   normalizer serve [--port 3000]
//
// The port comes from --port, then PORT, then server.port in the config.
// Uploads older than server.upload_retention are removed at startup.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/loyalty-normalizer/internal/web"
	"github.com/ginjaninja78/loyalty-normalizer/pkg/utils"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP upload and processing service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			mainConfig.Server.Port = servePort
		}

		if retention := mainConfig.Server.UploadRetention; retention > 0 {
			removed, err := utils.CleanOldFiles(mainConfig.UploadDir, retention)
			if err != nil {
				slog.Warn("failed to clean uploads", "error", err)
			} else if removed > 0 {
				slog.Info("removed old uploads", "count", removed, "older_than", retention)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := web.NewServer(mainConfig)
		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(fmt.Sprintf(":%d", mainConfig.Server.Port))
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		slog.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT and server.port)")
}
