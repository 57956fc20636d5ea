package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storesync/internal/app/server/api"
	"storesync/internal/app/server/config"
	"storesync/internal/app/server/dispatch"
	"storesync/internal/infrastructure/storage/postgres"
	"storesync/internal/utils/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	storage, err := postgres.New(cfg)
	if err != nil {
		log.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	registry := dispatch.NewRegistry(cfg.Dispatch.WindowSize, log)

	mux, events, err := api.New(cfg, storage, registry, log)
	if err != nil {
		log.Error("api init failed", "error", err)
		os.Exit(1)
	}

	policy := dispatch.RetryPolicy{
		BaseDelay:   cfg.Dispatch.BaseDelay,
		MaxDelay:    cfg.Dispatch.MaxDelay,
		MaxAttempts: cfg.Dispatch.MaxAttempts,
	}
	coordinator := dispatch.NewCoordinator(
		events, registry, policy, dispatch.SystemClock(),
		cfg.Dispatch.PollInterval, cfg.Dispatch.AckTimeout, log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go coordinator.Run(ctx)

	srv := &http.Server{Addr: cfg.Server.RunAddress, Handler: mux}
	go func() {
		log.Info("server started", "address", cfg.Server.RunAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
