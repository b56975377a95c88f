package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/cadastre/api"
	"github.com/use-agent/cadastre/cache"
	"github.com/use-agent/cadastre/cadastral"
	"github.com/use-agent/cadastre/store"
)

var servePort int

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from CADASTRE_PORT).")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--port <port>]",
	Short: "Runs the HTTP API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		slog.Info("cadastre starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
			"upstream", cfg.Cadastral.BaseURL,
		)

		var db *store.Store
		if cfg.Store.Path != "" {
			var err error
			db, err = store.Open(cmd.Context(), cfg.Store.Path)
			if err != nil {
				return err
			}
			defer db.Close()
		}

		router := api.NewRouter(api.Deps{
			Config:    cfg,
			Upstream:  cadastral.NewClient(cfg.Cadastral),
			Store:     db,
			Cache:     cache.New(cfg.Cache.MaxEntries, cfg.Cache.MaxAge),
			StartTime: time.Now(),
		})

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			slog.Info("shutdown signal received", "signal", sig.String())
		case err := <-serveErr:
			return fmt.Errorf("http server: %w", err)
		}

		// Give in-flight requests 5 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}
		slog.Info("cadastre stopped")
		return nil
	},
}
