package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rideaware/internal/commute"
	"rideaware/internal/eval"
	"rideaware/internal/forecast"
	"rideaware/internal/notify"
	"rideaware/internal/types"
)

// Default alert timings relative to the ride window.
const (
	DefaultPreRouteLead  = 3 * time.Hour
	DefaultReminderDelay = 1 * time.Hour
	DefaultForecastHours = 6
)

// AlertScheduler fires two notifications per ride window: a pre-route
// advisory ahead of the start, summarizing upcoming conditions against the
// rider's limits, and a feedback reminder after the end. A fire time already
// in the past fires immediately rather than being dropped, so late
// registrations and restarts still notify.
type AlertScheduler struct {
	forecast forecast.Client
	notifier notify.Notifier
	registry *Registry
	clock    Clock
	logger   *slog.Logger

	preRouteLead  time.Duration
	reminderDelay time.Duration
	forecastHours int
}

// AlertSchedulerConfig holds optional knobs for NewAlertScheduler. Zero
// values select production defaults.
type AlertSchedulerConfig struct {
	PreRouteLead  time.Duration
	ReminderDelay time.Duration
	ForecastHours int
	Clock         Clock
	Logger        *slog.Logger
}

// NewAlertScheduler creates an AlertScheduler.
func NewAlertScheduler(fc forecast.Client, notifier notify.Notifier, cfg AlertSchedulerConfig) *AlertScheduler {
	if cfg.PreRouteLead <= 0 {
		cfg.PreRouteLead = DefaultPreRouteLead
	}
	if cfg.ReminderDelay <= 0 {
		cfg.ReminderDelay = DefaultReminderDelay
	}
	if cfg.ForecastHours <= 0 {
		cfg.ForecastHours = DefaultForecastHours
	}
	if cfg.Clock == nil {
		cfg.Clock = NewClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AlertScheduler{
		forecast:      fc,
		notifier:      notifier,
		registry:      NewRegistry(),
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		preRouteLead:  cfg.PreRouteLead,
		reminderDelay: cfg.ReminderDelay,
		forecastHours: cfg.ForecastHours,
	}
}

// Schedule arms both alerts for a ride window. Re-scheduling the same ride
// replaces any pending alerts.
func (a *AlertScheduler) Schedule(ctx context.Context, w commute.Window, anchor types.GeoPoint, limits types.ComfortLimits) {
	a.registry.Start(ctx, "preroute:"+w.RideID, func(taskCtx context.Context) {
		a.runPreRoute(taskCtx, w, anchor, limits)
	})
	a.registry.Start(ctx, "reminder:"+w.RideID, func(taskCtx context.Context) {
		a.runReminder(taskCtx, w)
	})
}

// Stop cancels any pending alerts for a ride.
func (a *AlertScheduler) Stop(rideID string) {
	a.registry.Stop("preroute:" + rideID)
	a.registry.Stop("reminder:" + rideID)
}

// Shutdown cancels all pending alerts and waits for their tasks to exit.
func (a *AlertScheduler) Shutdown() {
	a.registry.StopAll()
}

// Pending reports how many alert tasks are armed.
func (a *AlertScheduler) Pending() int {
	return a.registry.Len()
}

func (a *AlertScheduler) runPreRoute(ctx context.Context, w commute.Window, anchor types.GeoPoint, limits types.ComfortLimits) {
	log := a.logger.With("ride_id", w.RideID, "device_id", w.DeviceID)

	fireAt := w.Start.Add(-a.preRouteLead)
	select {
	case <-ctx.Done():
		return
	case <-a.clock.After(fireAt.Sub(a.clock.Now())):
	}

	title, body := a.buildAdvisory(ctx, w, anchor, limits)
	if err := a.notifier.Send(ctx, w.DeviceID, title, body); err != nil {
		log.Warn("pre-route advisory not delivered", "error", err)
		return
	}
	log.Info("pre-route advisory sent")
}

// buildAdvisory inspects the upcoming forecast hours against the rider's
// limits. When the forecast is unavailable, or the window carries no anchor
// to forecast at, the advisory degrades to a plain heads-up instead of being
// dropped.
func (a *AlertScheduler) buildAdvisory(ctx context.Context, w commute.Window, anchor types.GeoPoint, limits types.ComfortLimits) (title, body string) {
	plain := func() (string, string) {
		return "Ride check", fmt.Sprintf(
			"Your ride starts at %s. Weather data is unavailable right now; check conditions before leaving.",
			w.Start.Format("15:04"))
	}
	if anchor.IsZero() {
		a.logger.Warn("pre-route advisory without an anchor location", "ride_id", w.RideID)
		return plain()
	}
	samples, err := a.forecast.NextHours(ctx, anchor.Lat, anchor.Lon, a.forecastHours)
	if err != nil {
		a.logger.Warn("pre-route forecast unavailable",
			"ride_id", w.RideID, "error", err)
		return plain()
	}

	hourly := make([][]eval.Breach, 0, len(samples))
	for _, s := range samples {
		hourly = append(hourly, eval.EvaluatePoint(s, limits))
	}
	summary := eval.SummarizeBreaches(hourly)
	if summary == "" {
		return "Ride check", fmt.Sprintf(
			"Conditions look good for your %s ride.", w.Start.Format("15:04"))
	}
	return "Heads up for your ride", summary
}

func (a *AlertScheduler) runReminder(ctx context.Context, w commute.Window) {
	log := a.logger.With("ride_id", w.RideID, "device_id", w.DeviceID)

	fireAt := w.End.Add(a.reminderDelay)
	select {
	case <-ctx.Done():
		return
	case <-a.clock.After(fireAt.Sub(a.clock.Now())):
	}

	err := a.notifier.Send(ctx, w.DeviceID,
		"How was your ride?",
		"Tell us how the conditions felt so we can tune your alerts.")
	if err != nil {
		log.Warn("feedback reminder not delivered", "error", err)
		return
	}
	log.Info("feedback reminder sent")
}
