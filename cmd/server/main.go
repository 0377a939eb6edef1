package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelcm/pse-data-bridge/internal/bridge"
	"github.com/angelcm/pse-data-bridge/internal/config"
	"github.com/angelcm/pse-data-bridge/internal/httpx"
	"github.com/angelcm/pse-data-bridge/internal/observability"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := observability.New(prometheus.DefaultRegisterer)
	deps, err := bridge.OpenDeps(ctx, cfg, logger)
	if err != nil {
		logger.Error("open dependencies", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer deps.Close()

	svc := bridge.NewService(deps.Store, logger, cfg, append(deps.Options(), bridge.WithMetrics(m))...)
	r := httpx.NewRouter(logger, svc, prometheus.DefaultGatherer)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		defer cancel()
		srv.Shutdown(sctx)
	}()

	logger.Info("starting server", slog.String("port", cfg.Port), slog.String("store", cfg.StoreDriver))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
