package db

import (
	"context"
	"time"

	"rideaware/internal/types"
)

// SnapshotRepository provides data access for the ride_snapshots table.
// The table enforces uniqueness on (ride_id, snapshot_at); duplicate writes
// are absorbed as no-ops so collection and backfill can safely overlap.
type SnapshotRepository struct {
	db DBTX
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given
// database connection (pool or transaction).
func NewSnapshotRepository(db DBTX) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Insert records a snapshot. A snapshot already present at the same
// (ride_id, timestamp) leaves the existing row untouched and returns nil.
func (r *SnapshotRepository) Insert(ctx context.Context, s *types.Snapshot) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO ride_snapshots (ride_id, device_id, snapshot_at, weather)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (ride_id, snapshot_at) DO NOTHING`,
		s.RideID, s.DeviceID, s.Timestamp, s.Weather,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert snapshot", err)
	}
	return nil
}

// CountByRide returns the number of snapshots recorded for a ride window.
func (r *SnapshotRepository) CountByRide(ctx context.Context, rideID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM ride_snapshots WHERE ride_id = $1`,
		rideID,
	).Scan(&count)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count snapshots", err)
	}
	return count, nil
}

// ListByRide returns all snapshots for a ride window in chronological order.
// No snapshots is not an error; the result is simply empty.
func (r *SnapshotRepository) ListByRide(ctx context.Context, rideID string) ([]types.Snapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ride_id, device_id, snapshot_at, weather
		 FROM ride_snapshots
		 WHERE ride_id = $1
		 ORDER BY snapshot_at ASC`,
		rideID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list snapshots", err)
	}
	defer rows.Close()

	var results []types.Snapshot
	for rows.Next() {
		var s types.Snapshot
		if err := rows.Scan(&s.RideID, &s.DeviceID, &s.Timestamp, &s.Weather); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan snapshot row", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating snapshot rows", err)
	}
	return results, nil
}

// ListByDeviceWindow returns a device's snapshots within [from, to] in
// chronological order, regardless of which ride they belong to. Used as the
// fallback join when a ride id yields no snapshots.
func (r *SnapshotRepository) ListByDeviceWindow(ctx context.Context, deviceID string, from, to time.Time) ([]types.Snapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ride_id, device_id, snapshot_at, weather
		 FROM ride_snapshots
		 WHERE device_id = $1 AND snapshot_at >= $2 AND snapshot_at <= $3
		 ORDER BY snapshot_at ASC`,
		deviceID, from, to,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list snapshots by device window", err)
	}
	defer rows.Close()

	var results []types.Snapshot
	for rows.Next() {
		var s types.Snapshot
		if err := rows.Scan(&s.RideID, &s.DeviceID, &s.Timestamp, &s.Weather); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan snapshot row", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating snapshot rows", err)
	}
	return results, nil
}
