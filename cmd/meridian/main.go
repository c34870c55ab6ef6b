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

	"github.com/meridian-gov/meridian/internal/access"
	"github.com/meridian-gov/meridian/internal/app"
	"github.com/meridian-gov/meridian/internal/budget"
	"github.com/meridian-gov/meridian/internal/dashboard"
	"github.com/meridian-gov/meridian/internal/events"
	"github.com/meridian-gov/meridian/internal/observability"
	"github.com/meridian-gov/meridian/internal/platform/cache"
	"github.com/meridian-gov/meridian/internal/platform/db"
	"github.com/meridian-gov/meridian/internal/prefs"
	"github.com/meridian-gov/meridian/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	bus := events.NewBus(logger, metrics)

	accessSvc := access.NewService(logger, bus, metrics)
	accessHandler := access.NewHandler(logger, accessSvc)
	guard := access.Middleware{Service: accessSvc, Logger: logger}

	budgetRepo := budget.NewRepository(pool)
	budgetSvc := budget.NewService(budgetRepo, bus)
	budgetHandler := budget.NewHandler(logger, budgetSvc, guard)

	dashCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	source := dashboard.NewBudgetSource(budgetSvc, dashCache)
	notifier := dashboard.NewNotifier(logger, source, bus, metrics, cfg.DashboardRefreshInterval)
	defer notifier.Close()
	dashboardHandler := dashboard.NewHandler(logger, source, notifier, guard)

	usersRepo := users.NewRepository(pool)
	usersSvc := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersSvc, guard)

	prefsStore := prefs.NewStore(redisClient, cfg.PrefsTTL)
	prefsHandler := prefs.NewHandler(logger, prefsStore)

	// Budget mutations invalidate the metric cache so the next tick
	// recomputes from fresh data.
	events.Subscribe(bus, func(e events.BudgetChanged) {
		bumpCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := dashCache.Bump(bumpCtx); err != nil {
			logger.Warn("bump dashboard cache", slog.Any("error", err))
		}
	})

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AccessHandler:    accessHandler,
		BudgetHandler:    budgetHandler,
		DashboardHandler: dashboardHandler,
		UsersHandler:     usersHandler,
		PrefsHandler:     prefsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
