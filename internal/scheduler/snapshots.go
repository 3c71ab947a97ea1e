package scheduler

import (
	"context"
	"log/slog"
	"time"

	"rideaware/internal/commute"
	"rideaware/internal/forecast"
	"rideaware/internal/geo"
	"rideaware/internal/types"
)

// DefaultMaxBackfillPoints bounds the cost of a single backfill walk.
const DefaultMaxBackfillPoints = 48

// SnapshotStore is the snapshot persistence the scheduler needs. Implemented
// by db.SnapshotRepository.
type SnapshotStore interface {
	Insert(ctx context.Context, s *types.Snapshot) error
	CountByRide(ctx context.Context, rideID string) (int, error)
}

// RideStatusStore transitions a ride's lifecycle status. Implemented by
// db.WindowRepository.
type RideStatusStore interface {
	UpdateStatus(ctx context.Context, rideID string, status string) error
}

// RouteSource provides a device's saved route. Implemented by
// db.RouteRepository. Optional: without one, snapshots are pinned to the
// window's anchor location.
type RouteSource interface {
	GetByDevice(ctx context.Context, deviceID string) (*types.Route, error)
}

// SnapshotScheduler runs one collection task per ride window. A task waits
// for the window to open, records a snapshot at every interval tick plus a
// final one at the window end, and marks the ride completed. Windows already
// over when the task starts are backfilled instead, unless snapshots were
// already recorded for the ride.
type SnapshotScheduler struct {
	forecast  forecast.Client
	snapshots SnapshotStore
	rides     RideStatusStore
	routes    RouteSource
	registry  *Registry
	clock     Clock
	logger    *slog.Logger

	maxBackfillPoints int
}

// SnapshotSchedulerConfig holds optional knobs for NewSnapshotScheduler.
// Zero values select production defaults.
type SnapshotSchedulerConfig struct {
	MaxBackfillPoints int
	Routes            RouteSource
	Clock             Clock
	Logger            *slog.Logger
}

// NewSnapshotScheduler creates a SnapshotScheduler.
func NewSnapshotScheduler(fc forecast.Client, snapshots SnapshotStore, rides RideStatusStore, cfg SnapshotSchedulerConfig) *SnapshotScheduler {
	if cfg.MaxBackfillPoints <= 0 {
		cfg.MaxBackfillPoints = DefaultMaxBackfillPoints
	}
	if cfg.Clock == nil {
		cfg.Clock = NewClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SnapshotScheduler{
		forecast:          fc,
		snapshots:         snapshots,
		rides:             rides,
		routes:            cfg.Routes,
		registry:          NewRegistry(),
		clock:             cfg.Clock,
		logger:            cfg.Logger,
		maxBackfillPoints: cfg.MaxBackfillPoints,
	}
}

// Schedule starts (or restarts) the collection task for a ride window. A task
// already running for the same ride is cancelled and replaced, so upserting a
// window's thresholds never leaves a stale collector behind.
func (s *SnapshotScheduler) Schedule(ctx context.Context, w commute.Window, anchor types.GeoPoint, interval time.Duration) {
	if interval <= 0 {
		interval = commute.DefaultInterval
	}
	s.registry.Start(ctx, w.RideID, func(taskCtx context.Context) {
		s.run(taskCtx, w, anchor, interval)
	})
}

// Stop cancels the collection task for a ride, if one is running.
func (s *SnapshotScheduler) Stop(rideID string) bool {
	return s.registry.Stop(rideID)
}

// Shutdown cancels all collection tasks and waits for them to exit.
func (s *SnapshotScheduler) Shutdown() {
	s.registry.StopAll()
}

// Running reports how many collection tasks are active.
func (s *SnapshotScheduler) Running() int {
	return s.registry.Len()
}

func (s *SnapshotScheduler) run(ctx context.Context, w commute.Window, anchor types.GeoPoint, interval time.Duration) {
	log := s.logger.With("ride_id", w.RideID, "device_id", w.DeviceID)
	locate := s.newLocator(ctx, log, w, anchor)
	if locate == nil {
		log.Warn("no saved route and no anchor location, collection skipped")
		return
	}

	now := s.clock.Now()
	switch {
	case now.Before(w.Start):
		log.Info("snapshot task pending", "starts_in", w.Start.Sub(now).String())
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(w.Start.Sub(now)):
		}
		s.collectLive(ctx, log, w, locate, interval)
	case now.Before(w.End):
		log.Info("snapshot task joining window in progress")
		s.collectLive(ctx, log, w, locate, interval)
	default:
		s.backfill(ctx, log, w, locate, interval)
	}

	if ctx.Err() != nil {
		return
	}
	if err := s.rides.UpdateStatus(ctx, w.RideID, types.RideStatusCompleted); err != nil {
		log.Error("failed to mark ride completed", "error", err)
	}
}

// collectLive records snapshots at each remaining tick of the window, ending
// with the final snapshot at the window end instant. A failed tick is logged
// and skipped; the task keeps going.
func (s *SnapshotScheduler) collectLive(ctx context.Context, log *slog.Logger, w commute.Window, locate locator, interval time.Duration) {
	if err := s.rides.UpdateStatus(ctx, w.RideID, types.RideStatusActive); err != nil {
		log.Error("failed to mark ride active", "error", err)
	}

	recorded := 0
	ticks := tickTimes(w.Start, w.End, interval)
	for i, tick := range ticks {
		now := s.clock.Now()
		if tick.Before(now) && i < len(ticks)-1 {
			// Joined mid-window; earlier ticks are gone. The end tick is
			// never dropped, even when a slow fetch overruns the window.
			continue
		}
		if now.Before(tick) {
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(tick.Sub(now)):
			}
		}
		if s.record(ctx, log, w, locate(tick), tick) {
			recorded++
		}
	}
	log.Info("live collection finished", "snapshots", recorded)
}

// backfill reconstructs the window's snapshots after the fact. If any
// snapshot already exists for the ride the walk is skipped entirely, so a
// restart never duplicates or half-redoes a collected window. The number of
// points is capped; the final point at the window end is always kept.
func (s *SnapshotScheduler) backfill(ctx context.Context, log *slog.Logger, w commute.Window, locate locator, interval time.Duration) {
	count, err := s.snapshots.CountByRide(ctx, w.RideID)
	if err != nil {
		log.Error("backfill aborted, count query failed", "error", err)
		return
	}
	if count > 0 {
		log.Info("backfill skipped, snapshots already recorded", "existing", count)
		return
	}

	ticks := tickTimes(w.Start, w.End, interval)
	if len(ticks) > s.maxBackfillPoints {
		capped := make([]time.Time, 0, s.maxBackfillPoints)
		capped = append(capped, ticks[:s.maxBackfillPoints-1]...)
		capped = append(capped, ticks[len(ticks)-1])
		ticks = capped
	}

	recorded := 0
	for _, tick := range ticks {
		if ctx.Err() != nil {
			return
		}
		if s.record(ctx, log, w, locate(tick), tick) {
			recorded++
		}
	}
	log.Info("backfill finished", "snapshots", recorded)
}

// locator maps a snapshot instant to the location it should be sampled at.
type locator func(at time.Time) types.GeoPoint

// newLocator resolves where each snapshot of the window is taken. With a
// saved route of two or more points, the location advances along the route
// by the window's elapsed fraction at the tick instant. Otherwise every
// snapshot uses the anchor location. Returns nil when neither a route nor an
// anchor is available; collecting at a fabricated (0,0) is never an option.
func (s *SnapshotScheduler) newLocator(ctx context.Context, log *slog.Logger, w commute.Window, anchor types.GeoPoint) locator {
	var fixed locator
	if !anchor.IsZero() {
		fixed = func(time.Time) types.GeoPoint { return anchor }
	}
	if s.routes == nil {
		return fixed
	}

	route, err := s.routes.GetByDevice(ctx, w.DeviceID)
	if err != nil {
		log.Debug("no route for device, snapshots pinned to anchor", "error", err)
		return fixed
	}
	if len(route.Points) < 2 {
		return fixed
	}

	cumulative, total := geo.CumulativeKm(route.Points)
	return func(at time.Time) types.GeoPoint {
		pt, err := geo.InterpolateAt(route.Points, cumulative, w.ElapsedFraction(at)*total)
		if err != nil {
			return route.Points[0]
		}
		return pt
	}
}

// record fetches the weather at the given location for the tick instant and
// persists it. Returns whether a snapshot was written.
func (s *SnapshotScheduler) record(ctx context.Context, log *slog.Logger, w commute.Window, loc types.GeoPoint, at time.Time) bool {
	sample, err := s.forecast.At(ctx, loc.Lat, loc.Lon, at)
	if err != nil {
		log.Warn("snapshot fetch failed", "at", at, "error", err)
		return false
	}
	snap := &types.Snapshot{
		RideID:    w.RideID,
		DeviceID:  w.DeviceID,
		Timestamp: at,
		Weather:   sample,
	}
	if err := s.snapshots.Insert(ctx, snap); err != nil {
		log.Warn("snapshot insert failed", "at", at, "error", err)
		return false
	}
	return true
}

// tickTimes returns the snapshot instants for a window: every interval step
// from start up to (but not including) end, plus the end instant itself.
func tickTimes(start, end time.Time, interval time.Duration) []time.Time {
	var out []time.Time
	for t := start; t.Before(end); t = t.Add(interval) {
		out = append(out, t)
	}
	return append(out, end)
}
