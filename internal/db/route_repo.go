package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"rideaware/internal/types"
)

// RouteRepository provides data access for the routes table. Each device
// stores at most one route; saving a new one replaces the previous.
type RouteRepository struct {
	db DBTX
}

// NewRouteRepository creates a RouteRepository backed by the given database
// connection (pool or transaction).
func NewRouteRepository(db DBTX) *RouteRepository {
	return &RouteRepository{db: db}
}

// Upsert saves the device's route, replacing any existing one.
func (r *RouteRepository) Upsert(ctx context.Context, route *types.Route) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO routes (device_id, route_name, start_lat, start_lon, end_lat, end_lon, route_points, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (device_id) DO UPDATE SET
			route_name = EXCLUDED.route_name,
			start_lat = EXCLUDED.start_lat,
			start_lon = EXCLUDED.start_lon,
			end_lat = EXCLUDED.end_lat,
			end_lon = EXCLUDED.end_lon,
			route_points = EXCLUDED.route_points,
			updated_at = NOW()
		 RETURNING updated_at`,
		route.DeviceID,
		route.Name,
		route.Start.Lat,
		route.Start.Lon,
		route.End.Lat,
		route.End.Lon,
		route.Points,
	).Scan(&route.UpdatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert route", err)
	}
	return nil
}

// GetByDevice retrieves the device's saved route. Returns ErrCodeNotFoundRoute
// if the device has none.
func (r *RouteRepository) GetByDevice(ctx context.Context, deviceID string) (*types.Route, error) {
	var route types.Route
	err := r.db.QueryRow(ctx,
		`SELECT device_id, route_name, start_lat, start_lon, end_lat, end_lon, route_points, updated_at
		 FROM routes
		 WHERE device_id = $1`,
		deviceID,
	).Scan(
		&route.DeviceID,
		&route.Name,
		&route.Start.Lat,
		&route.Start.Lon,
		&route.End.Lat,
		&route.End.Lon,
		&route.Points,
		&route.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundRoute, "no route saved for device", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve route", err)
	}
	return &route, nil
}
