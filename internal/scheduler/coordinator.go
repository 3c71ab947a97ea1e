package scheduler

import (
	"context"
	"log/slog"
	"time"

	"rideaware/internal/commute"
	"rideaware/internal/types"
)

// WindowLister loads stored ride windows for startup recovery. Implemented
// by db.WindowRepository.
type WindowLister interface {
	ListFromDate(ctx context.Context, date string) ([]*types.RideWindow, error)
}

// Coordinator ties the snapshot and alert schedulers together: one call arms
// everything a ride window needs, and startup recovery re-arms windows that
// were pending when the process last stopped.
type Coordinator struct {
	windows   WindowLister
	snapshots *SnapshotScheduler
	alerts    *AlertScheduler
	clock     Clock
	logger    *slog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(windows WindowLister, snapshots *SnapshotScheduler, alerts *AlertScheduler, clock Clock, logger *slog.Logger) *Coordinator {
	if clock == nil {
		clock = NewClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		windows:   windows,
		snapshots: snapshots,
		alerts:    alerts,
		clock:     clock,
		logger:    logger,
	}
}

// StartRide arms snapshot collection and both alerts for a ride window.
// Returns the resolved window so callers can report the absolute instants.
func (c *Coordinator) StartRide(ctx context.Context, rw *types.RideWindow) (commute.Window, error) {
	w, err := commute.WindowFor(*rw)
	if err != nil {
		return commute.Window{}, err
	}
	c.snapshots.Schedule(ctx, w, rw.AnchorLocation, commute.IntervalFor(*rw))
	c.alerts.Schedule(ctx, w, rw.AnchorLocation, rw.Limits)
	return w, nil
}

// StopRide cancels everything armed for a ride.
func (c *Coordinator) StopRide(rideID string) {
	c.snapshots.Stop(rideID)
	c.alerts.Stop(rideID)
}

// Recover re-arms schedulers for every stored window dated today or later.
// The query reaches back one extra day so windows whose local date is still
// today in a timezone behind UTC are not missed. Past windows resolve through
// the backfill path, which skips rides that already have snapshots, so
// recovery is safe to run on every startup.
func (c *Coordinator) Recover(ctx context.Context) (int, error) {
	from := c.clock.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	stored, err := c.windows.ListFromDate(ctx, from)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, rw := range stored {
		w, err := c.StartRide(ctx, rw)
		if err != nil {
			c.logger.Warn("skipping unrecoverable ride window",
				"ride_id", rw.RideID, "error", err)
			continue
		}
		recovered++
		c.logger.Info("recovered ride window",
			"ride_id", rw.RideID,
			"device_id", rw.DeviceID,
			"start", w.Start.Format(time.RFC3339),
			"end", w.End.Format(time.RFC3339),
		)
	}
	return recovered, nil
}

// Shutdown stops all scheduler tasks and waits for them to exit.
func (c *Coordinator) Shutdown() {
	c.snapshots.Shutdown()
	c.alerts.Shutdown()
}
