// Package history assembles ride history: stored ride records joined with
// the weather snapshots recorded during their windows.
package history

import (
	"context"
	"log/slog"
	"time"

	"rideaware/internal/commute"
	"rideaware/internal/types"
)

// SnapshotStore is the snapshot lookup the joiner needs. Implemented by
// db.SnapshotRepository.
type SnapshotStore interface {
	ListByRide(ctx context.Context, rideID string) ([]types.Snapshot, error)
	ListByDeviceWindow(ctx context.Context, deviceID string, from, to time.Time) ([]types.Snapshot, error)
}

// RideStore is the ride window lookup the joiner needs. Implemented by
// db.WindowRepository.
type RideStore interface {
	GetByRideID(ctx context.Context, rideID string) (*types.RideWindow, error)
	ListRecords(ctx context.Context, deviceID string, limit int) ([]types.RideRecord, error)
}

// Service joins rides with their recorded weather. The primary join is by
// ride id; when a ride has no snapshots under its own id (windows re-created
// under a new id, or data recorded before the id existed), the joiner falls
// back to the device's snapshots inside the ride's time window. A ride with
// no snapshots either way simply has empty history; that is not an error.
type Service struct {
	snapshots SnapshotStore
	rides     RideStore
	logger    *slog.Logger
}

// NewService creates a history Service.
func NewService(snapshots SnapshotStore, rides RideStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{snapshots: snapshots, rides: rides, logger: logger}
}

// FetchHistory returns the weather snapshots for one ride in chronological
// order. Returns ErrCodeNotFoundWindow when the ride id is unknown.
func (s *Service) FetchHistory(ctx context.Context, rideID string) ([]types.Snapshot, error) {
	snaps, err := s.snapshots.ListByRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if len(snaps) > 0 {
		return snaps, nil
	}

	rw, err := s.rides.GetByRideID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	w, err := commute.WindowFor(*rw)
	if err != nil {
		return nil, err
	}

	snaps, err = s.snapshots.ListByDeviceWindow(ctx, rw.DeviceID, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	if len(snaps) > 0 {
		s.logger.Debug("ride history resolved via device window fallback",
			"ride_id", rideID,
			"device_id", rw.DeviceID,
			"snapshots", len(snaps),
		)
	}
	return snaps, nil
}

// FetchRides returns the device's ride records, newest first, each hydrated
// with its weather history. A record whose snapshots cannot be loaded keeps
// an empty history rather than failing the whole listing.
func (s *Service) FetchRides(ctx context.Context, deviceID string, limit int) ([]types.RideRecord, error) {
	records, err := s.rides.ListRecords(ctx, deviceID, limit)
	if err != nil {
		return nil, err
	}

	for i := range records {
		snaps, err := s.hydrate(ctx, &records[i])
		if err != nil {
			s.logger.Warn("failed to hydrate ride history",
				"ride_id", records[i].RideID, "error", err)
			continue
		}
		records[i].WeatherHistory = snaps
	}
	return records, nil
}

// hydrate loads one record's snapshots, using the same primary-then-fallback
// join as FetchHistory but without a second ride lookup since the record
// already carries its window fields.
func (s *Service) hydrate(ctx context.Context, rec *types.RideRecord) ([]types.Snapshot, error) {
	snaps, err := s.snapshots.ListByRide(ctx, rec.RideID)
	if err != nil {
		return nil, err
	}
	if len(snaps) > 0 {
		return snaps, nil
	}

	w, err := commute.BuildWindow(
		rec.DeviceID, rec.RideID,
		rec.Date, rec.StartTime, rec.EndTime, rec.Timezone,
		0,
	)
	if err != nil {
		return nil, err
	}
	return s.snapshots.ListByDeviceWindow(ctx, rec.DeviceID, w.Start, w.End)
}
