package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/mechflow/mechflow-backend/api/routes"
	"github.com/mechflow/mechflow-backend/internal/audit"
	"github.com/mechflow/mechflow-backend/internal/estimates"
	"github.com/mechflow/mechflow-backend/internal/notifications"
	"github.com/mechflow/mechflow-backend/internal/settings"
	"github.com/mechflow/mechflow-backend/internal/users"
	"github.com/mechflow/mechflow-backend/pkg/alerts"
	"github.com/mechflow/mechflow-backend/pkg/config"
	"github.com/mechflow/mechflow-backend/pkg/events"
	"github.com/mechflow/mechflow-backend/pkg/kv"
	"github.com/mechflow/mechflow-backend/pkg/logger"
	"github.com/mechflow/mechflow-backend/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Origin id distinguishes this instance's writes on shared backends.
	origin := uuid.NewString()

	store, feed, err := openStore(ctx, cfg, origin)
	if err != nil {
		logg.Error(ctx, "failed to open kv store", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storeMetrics := metrics.NewStoreMetrics(registry)

	bus := events.NewBus(logg)

	var bridge *events.Bridge
	if feed != nil {
		bridge = events.NewBridge(feed, bus, origin, logg)
		bridge.Run(ctx)
	}

	notifier := alerts.FromMode(cfg.Alerts.Mode, logg)

	usersService, err := users.NewService(store, bus, storeMetrics, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}
	settingsService, err := settings.NewService(store, bus, storeMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create settings service", err)
		os.Exit(1)
	}
	notificationsService, err := notifications.NewService(store, bus, notifier, storeMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}
	estimatesService, err := estimates.NewService(store, bus, settingsService, usersService, notificationsService, storeMetrics, logg)
	if err != nil {
		logg.Error(ctx, "failed to create estimates service", err)
		os.Exit(1)
	}
	auditService, err := audit.NewService(store, storeMetrics)
	if err != nil {
		logg.Error(ctx, "failed to create audit service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"backend": strings.ToLower(cfg.KV.Backend),
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			store,
			registry,
			usersService,
			estimatesService,
			notificationsService,
			settingsService,
			auditService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(startCtx, "api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		logg.Info(startCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(startCtx, "graceful shutdown failed", err)
		}
	}

	var closeErr error
	if bridge != nil {
		closeErr = multierr.Append(closeErr, bridge.Close())
	}
	closeErr = multierr.Append(closeErr, store.Close())
	if closeErr != nil {
		logg.Error(startCtx, "error closing resources", closeErr)
		os.Exit(1)
	}
}

// openStore selects the configured backend. Only Redis exposes a change
// feed; the other backends are single-instance.
func openStore(ctx context.Context, cfg *config.Config, origin string) (kv.Store, kv.ChangeFeed, error) {
	switch strings.ToLower(cfg.KV.Backend) {
	case "memory":
		return kv.NewMemory(), nil, nil
	case "redis":
		store, err := kv.NewRedis(ctx, cfg.Redis, origin)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		store, err := kv.NewSQLite(cfg.KV.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}
