package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/config"
	"github.com/DoyleJ11/cricket-live/internal/httpapi"
	"github.com/DoyleJ11/cricket-live/internal/hub"
	"github.com/DoyleJ11/cricket-live/internal/logging"
	"github.com/DoyleJ11/cricket-live/internal/metrics"
	"github.com/DoyleJ11/cricket-live/internal/room"
	"github.com/DoyleJ11/cricket-live/internal/storage"
	"github.com/DoyleJ11/cricket-live/internal/ws"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadRelay()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("relay stopped", zap.Error(err))
	}
}

func run(cfg config.Relay, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo storage.Repository = storage.NewMemory()
	if cfg.DatabaseURL != "" {
		pg, err := storage.OpenPostgres(cfg.DatabaseURL, cfg.Development)
		if err != nil {
			return err
		}
		repo = pg
		log.Info("persisting snapshots to postgres")
	}

	m := metrics.NewService()
	h := hub.NewHub(ctx, room.Options{Repo: repo, Logger: log, Metrics: m})

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, httpapi.Options{
		WS: ws.Options{
			HeartBeat:    cfg.HeartBeat,
			WriteTimeout: cfg.WriteTimeout,
			OutboxSize:   cfg.OutboxSize,
			Logger:       log,
			Metrics:      m,
		},
		Metrics: metrics.NewMetricsHandler(),
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
