package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"rideaware/internal/types"
)

// DeviceTokenRepository provides data access for the device_tokens table.
// Each device keeps a single push token; re-registration replaces it.
type DeviceTokenRepository struct {
	db DBTX
}

// NewDeviceTokenRepository creates a DeviceTokenRepository backed by the
// given database connection (pool or transaction).
func NewDeviceTokenRepository(db DBTX) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

// Upsert registers or refreshes a device's push token.
func (r *DeviceTokenRepository) Upsert(ctx context.Context, tok *types.DeviceToken) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO device_tokens (device_id, push_token, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (device_id) DO UPDATE SET
			push_token = EXCLUDED.push_token,
			updated_at = NOW()
		 RETURNING updated_at`,
		tok.DeviceID, tok.Token,
	).Scan(&tok.UpdatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert device token", err)
	}
	return nil
}

// GetByDevice retrieves the registered push token for a device. Returns
// ErrCodeNotifyNoToken if the device never registered one.
func (r *DeviceTokenRepository) GetByDevice(ctx context.Context, deviceID string) (*types.DeviceToken, error) {
	var tok types.DeviceToken
	err := r.db.QueryRow(ctx,
		`SELECT device_id, push_token, updated_at
		 FROM device_tokens
		 WHERE device_id = $1`,
		deviceID,
	).Scan(&tok.DeviceID, &tok.Token, &tok.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotifyNoToken, "no push token registered for device", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve device token", err)
	}
	return &tok, nil
}
