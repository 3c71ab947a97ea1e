// Package main is the entry point for the RideAware API server.
//
// It loads configuration, connects the Postgres pool, builds the forecast
// client and schedulers, recovers in-flight ride windows from the database,
// and serves the HTTP API until interrupted. Graceful shutdown is handled via
// OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"rideaware/internal/api/handlers"
	"rideaware/internal/commute"
	"rideaware/internal/config"
	"rideaware/internal/core"
	"rideaware/internal/db"
	"rideaware/internal/forecast"
	"rideaware/internal/history"
	"rideaware/internal/notify"
	"rideaware/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on
// error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("rideaware API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	// ctx ends on SIGINT/SIGTERM; everything long-lived hangs off it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	windowRepo := db.NewWindowRepository(pool)
	snapshotRepo := db.NewSnapshotRepository(pool)
	routeRepo := db.NewRouteRepository(pool)
	feedbackRepo := db.NewFeedbackRepository(pool)
	deviceRepo := db.NewDeviceTokenRepository(pool)
	archiveRepo := db.NewForecastArchiveRepository(pool)

	// Every forecast fetch is archived as a side effect, so the raw upstream
	// samples survive for later analysis even when the snapshot pipeline
	// discards them.
	forecastClient := forecast.NewArchivingClient(
		forecast.NewOpenWeatherClient(forecast.OpenWeatherConfig{
			APIKey:            cfg.Forecast.APIKey,
			BaseURL:           cfg.Forecast.BaseURL,
			Timeout:           cfg.Forecast.Timeout,
			RequestsPerMinute: cfg.Forecast.RequestsPerMinute,
		}),
		archiveRepo,
		logger,
	)

	notifier := notify.NewPushNotifier(deviceRepo, notify.PushConfig{Logger: logger})

	snapshotScheduler := scheduler.NewSnapshotScheduler(forecastClient, snapshotRepo, windowRepo,
		scheduler.SnapshotSchedulerConfig{
			MaxBackfillPoints: cfg.Scheduler.MaxBackfillPoints,
			Routes:            routeRepo,
			Logger:            logger,
		})
	alertScheduler := scheduler.NewAlertScheduler(forecastClient, notifier,
		scheduler.AlertSchedulerConfig{
			PreRouteLead:  cfg.Scheduler.PreRouteLead,
			ReminderDelay: cfg.Scheduler.ReminderDelay,
			ForecastHours: cfg.Scheduler.ForecastHours,
			Logger:        logger,
		})
	coordinator := scheduler.NewCoordinator(windowRepo, snapshotScheduler, alertScheduler, scheduler.NewClock(), logger)

	// Re-arm collection and alerts for windows that were live or upcoming
	// when the previous process stopped.
	recovered, err := coordinator.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recovering ride windows: %w", err)
	}
	logger.Info("ride windows recovered", "count", recovered)

	historyService := history.NewService(snapshotRepo, windowRepo, logger)
	statusService := commute.NewStatusService(windowRepo, forecastClient, nil, logger)
	routeWeatherService := commute.NewRouteWeatherService(forecastClient, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	thresholdHandler := handlers.NewThresholdHandler(ctx, windowRepo, coordinator, srv.Validator, logger)
	routeHandler := handlers.NewRouteHandler(routeRepo, srv.Validator, logger)
	historyHandler := handlers.NewHistoryHandler(historyService, logger)
	statusHandler := handlers.NewStatusHandler(statusService, logger)
	routeWeatherHandler := handlers.NewRouteWeatherHandler(routeWeatherService, srv.Validator, logger)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackRepo, srv.Validator, logger)
	deviceHandler := handlers.NewDeviceHandler(deviceRepo, srv.Validator, logger)

	srv.Router().Route("/v1", func(r chi.Router) {
		r.Route("/thresholds", thresholdHandler.RegisterRoutes)
		r.Route("/routes", routeHandler.RegisterRoutes)
		r.Route("/history", historyHandler.RegisterRoutes)
		r.Route("/commute-status", statusHandler.RegisterRoutes)
		r.Route("/route-weather", routeWeatherHandler.RegisterRoutes)
		r.Route("/feedback", feedbackHandler.RegisterRoutes)
		r.Route("/devices", deviceHandler.RegisterRoutes)
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}

		coordinator.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("rideaware API stopped")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
