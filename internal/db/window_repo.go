package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rideaware/internal/types"
)

// WindowRepository provides data access for the ride_windows table. A window
// is keyed by (device_id, ride_date, start_time, end_time); ride_id is a UUID
// assigned on first insert and preserved across upserts so snapshots and
// feedback keep a stable link.
type WindowRepository struct {
	db DBTX
}

// NewWindowRepository creates a WindowRepository backed by the given
// database connection (pool or transaction).
func NewWindowRepository(db DBTX) *WindowRepository {
	return &WindowRepository{db: db}
}

const windowColumns = `ride_id, device_id, ride_date, start_time, end_time,
	timezone, weather_limits, anchor_lat, anchor_lon, interval_minutes,
	created_at, updated_at`

func scanWindow(row pgx.Row) (*types.RideWindow, error) {
	var rw types.RideWindow
	var tz *string
	err := row.Scan(
		&rw.RideID,
		&rw.DeviceID,
		&rw.Date,
		&rw.StartTime,
		&rw.EndTime,
		&tz,
		&rw.Limits,
		&rw.AnchorLocation.Lat,
		&rw.AnchorLocation.Lon,
		&rw.IntervalMinutes,
		&rw.CreatedAt,
		&rw.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tz != nil {
		rw.Timezone = *tz
	}
	return &rw, nil
}

// Upsert inserts a ride window or updates the existing one for the same
// (device, date, start, end) key. The limits, timezone, anchor location, and
// interval are refreshed on conflict; ride_id and created_at are preserved.
// The stored ride_id is written back into rw.
func (r *WindowRepository) Upsert(ctx context.Context, rw *types.RideWindow) error {
	if rw.RideID == "" {
		rw.RideID = uuid.NewString()
	}
	row := r.db.QueryRow(ctx,
		`INSERT INTO ride_windows (
			ride_id, device_id, ride_date, start_time, end_time,
			timezone, weather_limits, anchor_lat, anchor_lon, interval_minutes,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (device_id, ride_date, start_time, end_time) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			weather_limits = EXCLUDED.weather_limits,
			anchor_lat = EXCLUDED.anchor_lat,
			anchor_lon = EXCLUDED.anchor_lon,
			interval_minutes = EXCLUDED.interval_minutes,
			updated_at = NOW()
		RETURNING ride_id, created_at, updated_at`,
		rw.RideID,
		rw.DeviceID,
		rw.Date,
		rw.StartTime,
		rw.EndTime,
		nilIfEmpty(rw.Timezone),
		rw.Limits,
		rw.AnchorLocation.Lat,
		rw.AnchorLocation.Lon,
		rw.IntervalMinutes,
		types.RideStatusScheduled,
	)
	if err := row.Scan(&rw.RideID, &rw.CreatedAt, &rw.UpdatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert ride window", err)
	}
	return nil
}

// Delete removes a ride window. Snapshots and feedback keep the ride_id and
// survive the deletion. Returns ErrCodeNotFoundWindow if no window exists.
func (r *WindowRepository) Delete(ctx context.Context, rideID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM ride_windows WHERE ride_id = $1`, rideID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete ride window", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundWindow, "ride window not found", nil)
	}
	return nil
}

// GetByRideID retrieves a ride window by its stable identifier. Returns
// ErrCodeNotFoundWindow if no window exists.
func (r *WindowRepository) GetByRideID(ctx context.Context, rideID string) (*types.RideWindow, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+windowColumns+`
		 FROM ride_windows
		 WHERE ride_id = $1`,
		rideID,
	)
	rw, err := scanWindow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundWindow, "ride window not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve ride window", err)
	}
	return rw, nil
}

// GetCurrent returns the device's window for the given local date, falling
// back to the most recently updated window when no window matches the date.
// The fallback lets callers recover the device's timezone and limits even
// between scheduled rides. Returns ErrCodeNotFoundWindow when the device has
// no windows at all.
func (r *WindowRepository) GetCurrent(ctx context.Context, deviceID string, date string) (*types.RideWindow, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+windowColumns+`
		 FROM ride_windows
		 WHERE device_id = $1 AND ride_date = $2
		 ORDER BY start_time ASC
		 LIMIT 1`,
		deviceID, date,
	)
	rw, err := scanWindow(row)
	if err == nil {
		return rw, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve current ride window", err)
	}

	row = r.db.QueryRow(ctx,
		`SELECT `+windowColumns+`
		 FROM ride_windows
		 WHERE device_id = $1
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		deviceID,
	)
	rw, err = scanWindow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundWindow, "no ride windows for device", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve latest ride window", err)
	}
	return rw, nil
}

// ListFromDate returns all windows whose date is on or after the given date,
// across all devices, ordered by date then start time. Used at startup to
// recover schedulers for windows that have not finished yet.
func (r *WindowRepository) ListFromDate(ctx context.Context, date string) ([]*types.RideWindow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+windowColumns+`
		 FROM ride_windows
		 WHERE ride_date >= $1
		 ORDER BY ride_date ASC, start_time ASC`,
		date,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list ride windows", err)
	}
	defer rows.Close()

	var results []*types.RideWindow
	for rows.Next() {
		rw, scanErr := scanWindow(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan ride window row", scanErr)
		}
		results = append(results, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating ride window rows", err)
	}
	return results, nil
}

// UpdateStatus transitions a ride window's lifecycle status. Returns
// ErrCodeNotFoundWindow if the ride does not exist.
func (r *WindowRepository) UpdateStatus(ctx context.Context, rideID string, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE ride_windows SET status = $1, updated_at = NOW()
		 WHERE ride_id = $2`,
		status, rideID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update ride status", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundWindow, "ride window not found", nil)
	}
	return nil
}

// ListRecords returns the device's ride history, newest first, with the
// latest feedback summary joined in. Weather snapshots are hydrated
// separately by the history service.
func (r *WindowRepository) ListRecords(ctx context.Context, deviceID string, limit int) ([]types.RideRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT w.ride_id, w.device_id, w.ride_date, w.start_time, w.end_time,
		        w.timezone, w.status, f.summary
		 FROM ride_windows w
		 LEFT JOIN LATERAL (
			SELECT summary FROM ride_feedback
			WHERE ride_id = w.ride_id
			ORDER BY created_at DESC
			LIMIT 1
		 ) f ON TRUE
		 WHERE w.device_id = $1
		 ORDER BY w.ride_date DESC, w.start_time DESC
		 LIMIT $2`,
		deviceID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list ride records", err)
	}
	defer rows.Close()

	var results []types.RideRecord
	for rows.Next() {
		var rec types.RideRecord
		var tz *string
		if err := rows.Scan(
			&rec.RideID,
			&rec.DeviceID,
			&rec.Date,
			&rec.StartTime,
			&rec.EndTime,
			&tz,
			&rec.Status,
			&rec.Feedback,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan ride record row", err)
		}
		if tz != nil {
			rec.Timezone = *tz
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating ride record rows", err)
	}
	return results, nil
}
