package forecast

import (
	"context"
	"log/slog"
	"time"

	"rideaware/internal/types"
)

// SampleArchiver persists fetched forecast samples for later analysis.
type SampleArchiver interface {
	ArchiveSamples(ctx context.Context, lat, lon float64, samples []types.WeatherSample) error
}

// ArchivingClient wraps a Client and records every successful fetch through
// the archiver. Archive failures are logged and never surfaced to callers;
// the forecast result always wins.
type ArchivingClient struct {
	inner    Client
	archiver SampleArchiver
	logger   *slog.Logger
}

// NewArchivingClient wraps inner so that fetched samples are archived.
func NewArchivingClient(inner Client, archiver SampleArchiver, logger *slog.Logger) *ArchivingClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchivingClient{inner: inner, archiver: archiver, logger: logger}
}

// At implements Client.
func (a *ArchivingClient) At(ctx context.Context, lat, lon float64, at time.Time) (types.WeatherSample, error) {
	sample, err := a.inner.At(ctx, lat, lon, at)
	if err != nil {
		return types.WeatherSample{}, err
	}
	a.archive(ctx, lat, lon, []types.WeatherSample{sample})
	return sample, nil
}

// NextHours implements Client.
func (a *ArchivingClient) NextHours(ctx context.Context, lat, lon float64, hours int) ([]types.WeatherSample, error) {
	samples, err := a.inner.NextHours(ctx, lat, lon, hours)
	if err != nil {
		return nil, err
	}
	a.archive(ctx, lat, lon, samples)
	return samples, nil
}

func (a *ArchivingClient) archive(ctx context.Context, lat, lon float64, samples []types.WeatherSample) {
	if a.archiver == nil || len(samples) == 0 {
		return
	}
	if err := a.archiver.ArchiveSamples(ctx, lat, lon, samples); err != nil {
		a.logger.Warn("failed to archive forecast samples",
			"lat", lat,
			"lon", lon,
			"count", len(samples),
			"error", err,
		)
	}
}
