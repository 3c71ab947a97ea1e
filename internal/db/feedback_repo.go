package db

import (
	"context"

	"rideaware/internal/types"
)

// FeedbackRepository provides data access for the ride_feedback table.
type FeedbackRepository struct {
	db DBTX
}

// NewFeedbackRepository creates a FeedbackRepository backed by the given
// database connection (pool or transaction).
func NewFeedbackRepository(db DBTX) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Insert records a rider's post-ride feedback.
func (r *FeedbackRepository) Insert(ctx context.Context, fb *types.Feedback) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO ride_feedback (
			device_id, ride_id, commute,
			temperature_ok, wind_speed_ok, headwind_ok, crosswind_ok,
			precipitation_ok, humidity_ok, summary, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at`,
		fb.DeviceID,
		fb.RideID,
		nilIfEmpty(fb.Commute),
		fb.TemperatureOK,
		fb.WindSpeedOK,
		fb.HeadwindOK,
		fb.CrosswindOK,
		fb.PrecipitationOK,
		fb.HumidityOK,
		fb.Summary,
	).Scan(&fb.CreatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert feedback", err)
	}
	return nil
}

// ListByRide returns all feedback entries for a ride, newest first.
func (r *FeedbackRepository) ListByRide(ctx context.Context, rideID string) ([]types.Feedback, error) {
	rows, err := r.db.Query(ctx,
		`SELECT device_id, ride_id, COALESCE(commute, ''),
		        temperature_ok, wind_speed_ok, headwind_ok, crosswind_ok,
		        precipitation_ok, humidity_ok, summary, created_at
		 FROM ride_feedback
		 WHERE ride_id = $1
		 ORDER BY created_at DESC`,
		rideID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list feedback", err)
	}
	defer rows.Close()

	var results []types.Feedback
	for rows.Next() {
		var fb types.Feedback
		if err := rows.Scan(
			&fb.DeviceID,
			&fb.RideID,
			&fb.Commute,
			&fb.TemperatureOK,
			&fb.WindSpeedOK,
			&fb.HeadwindOK,
			&fb.CrosswindOK,
			&fb.PrecipitationOK,
			&fb.HumidityOK,
			&fb.Summary,
			&fb.CreatedAt,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan feedback row", err)
		}
		results = append(results, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating feedback rows", err)
	}
	return results, nil
}
