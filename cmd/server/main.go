package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/attrmatrix/internal/app"
	"github.com/JonMunkholm/attrmatrix/internal/auth"
	"github.com/JonMunkholm/attrmatrix/internal/config"
	"github.com/JonMunkholm/attrmatrix/internal/core"
	"github.com/JonMunkholm/attrmatrix/internal/logging"
	"github.com/JonMunkholm/attrmatrix/internal/metrics"
	"github.com/JonMunkholm/attrmatrix/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	st, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	var m *metrics.Metrics
	opts := []core.Option{}
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts = append(opts, core.WithRecorder(m))
	}

	service := core.NewService(st, cfg.Import, opts...)
	server := web.NewServer(service, auth.New(cfg.Auth), m, cfg)

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}
