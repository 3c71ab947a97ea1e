package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rideaware/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

// --- SnapshotRepository Tests ---

func TestSnapshotRepository_Insert_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSnapshotRepository(db)

	temp := 14.0
	snap := &types.Snapshot{
		RideID:    "ride_1",
		DeviceID:  "device_abc123",
		Timestamp: time.Now().UTC(),
		Weather:   types.WeatherSample{Temperature: &temp},
	}

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Insert(context.Background(), snap)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestSnapshotRepository_Insert_DuplicateAbsorbed(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSnapshotRepository(db)

	// ON CONFLICT DO NOTHING reports zero rows; that is still success.
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil)

	err := repo.Insert(context.Background(), &types.Snapshot{
		RideID:    "ride_1",
		DeviceID:  "device_abc123",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestSnapshotRepository_Insert_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSnapshotRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := repo.Insert(context.Background(), &types.Snapshot{RideID: "ride_1"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestSnapshotRepository_CountByRide(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSnapshotRepository(db)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{
			scanFn: func(dest ...any) error {
				*dest[0].(*int) = 7
				return nil
			},
		})

	count, err := repo.CountByRide(context.Background(), "ride_1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestSnapshotRepository_ListByRide_QueryError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewSnapshotRepository(db)

	db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(nil, errors.New("socket closed"))

	_, err := repo.ListByRide(context.Background(), "ride_1")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
