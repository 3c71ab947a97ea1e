package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rideaware/internal/types"
)

// ForecastArchiveRepository stores raw fetched forecast samples in the
// forecast_archive table. The archive feeds later accuracy analysis and is
// never read on the hot path, so writes favor a single multi-row INSERT and
// duplicates at the same (location, sample time) are absorbed.
type ForecastArchiveRepository struct {
	db DBTX
}

// NewForecastArchiveRepository creates a ForecastArchiveRepository backed by
// the given database connection (pool or transaction).
func NewForecastArchiveRepository(db DBTX) *ForecastArchiveRepository {
	return &ForecastArchiveRepository{db: db}
}

// ArchiveSamples persists a batch of samples fetched for one location.
func (r *ForecastArchiveRepository) ArchiveSamples(ctx context.Context, lat, lon float64, samples []types.WeatherSample) error {
	if len(samples) == 0 {
		return nil
	}

	const colCount = 4
	var sb strings.Builder
	sb.WriteString(`INSERT INTO forecast_archive (lat, lon, sample_at, weather) VALUES `)

	args := make([]any, 0, len(samples)*colCount)
	for i, s := range samples {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * colCount
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4)
		args = append(args, lat, lon, s.Timestamp, s)
	}
	sb.WriteString(` ON CONFLICT (lat, lon, sample_at) DO NOTHING`)

	if _, err := r.db.Exec(ctx, sb.String(), args...); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to archive forecast samples", err)
	}
	return nil
}

// PruneBefore deletes archived samples older than the cutoff. Returns the
// number of rows removed.
func (r *ForecastArchiveRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM forecast_archive WHERE sample_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to prune forecast archive", err)
	}
	return tag.RowsAffected(), nil
}
