package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bulk_sender/internal/httpapi"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Open the browser and serve the HTTP control surface.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			a.bus.Log("info", "server starting", map[string]any{"addr": cfg.Server.Addr})
			a.engine.StartHousekeeping()
			go func() {
				if err := a.waitReady(ctx); err != nil {
					a.logger.Warn("chat page not ready", zap.Error(err))
					a.bus.Status("warning", err.Error())
					return
				}
				a.bus.Status("success", "Chat page ready")
			}()

			api := httpapi.New(httpapi.Options{
				Cfg:    cfg,
				Bus:    a.bus,
				Store:  a.store,
				Engine: a.engine,
				Logger: a.logger.Named("http"),
			})
			server := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           api.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				serverErr <- server.ListenAndServe()
			}()
			a.logger.Info("listening", zap.String("addr", cfg.Server.Addr))

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(stop)

			var runErr error
			select {
			case sig := <-stop:
				a.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			case err := <-serverErr:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					runErr = err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = a.engine.Stop(shutdownCtx)
			_ = server.Shutdown(shutdownCtx)
			a.logger.Info("server stopped")
			return runErr
		},
	}
}
