package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shop-auth/internal/app"
)

const signalBufferSize = 1

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			svc, err := app.InitializeService(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- svc.Start()
			}()

			quit := make(chan os.Signal, signalBufferSize)
			signal.Notify(quit, shutdownSignals...)

			select {
			case err := <-errCh:
				if err != nil {
					log.WithError(err).Error("server error")
					return err
				}
			case sig := <-quit:
				log.WithField("signal", sig.String()).Info("shutting down server")
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := svc.Shutdown(ctx); err != nil {
				log.WithError(err).Error("server forced to shutdown")
				return err
			}

			log.Info("server exited gracefully")
			return nil
		},
	}
}
