package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the contest API and runs scheduled refreshes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()
			logger := appInstance.Logger()
			if port == 0 {
				port = cfg.Server.Port
			}

			ctx, stop := context.WithCancel(cmd.Context())
			defer stop()

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           appInstance.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			if interval := cfg.ScheduleInterval(); interval > 0 {
				go appInstance.Runner().Schedule(ctx, interval)
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server started", zap.Int("port", port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			var serveErr error
			select {
			case <-ctx.Done():
			case serveErr = <-errCh:
			}
			logger.Info("shutdown initiated")
			stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", zap.Error(err))
			}
			logger.Info("shutdown complete")
			if serveErr != nil {
				return fmt.Errorf("http server: %w", serveErr)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}
