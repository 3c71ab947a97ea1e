package commute

import (
	"context"
	"log/slog"
	"time"

	"rideaware/internal/eval"
	"rideaware/internal/forecast"
	"rideaware/internal/types"
)

// Default commute times used when a device has no window on file for today.
const (
	DefaultMorningTime = "08:00"
	DefaultEveningTime = "17:00"
)

// WindowStore looks up a device's threshold window. Implemented by
// db.WindowRepository.
type WindowStore interface {
	GetCurrent(ctx context.Context, deviceID string, date string) (*types.RideWindow, error)
}

// LegStatus is the evaluated outlook for one commute leg.
type LegStatus struct {
	At         time.Time           `json:"at"`
	Exceeded   []string            `json:"exceeded"`
	Borderline []string            `json:"borderline"`
	Weather    types.WeatherSample `json:"weather_snapshot"`
}

// Status is the morning and evening outlook for a device's commute today.
type Status struct {
	DeviceID string    `json:"device_id"`
	Morning  LegStatus `json:"morning_status"`
	Evening  LegStatus `json:"evening_status"`
}

// StatusService answers "how does my commute look today": it resolves the
// device's current threshold window, forecasts the anchor location at the
// morning and evening leg times, and evaluates both against the rider's
// limits.
type StatusService struct {
	windows  WindowStore
	forecast forecast.Client
	now      func() time.Time
	logger   *slog.Logger
}

// NewStatusService creates a StatusService. A nil now function uses the wall
// clock.
func NewStatusService(windows WindowStore, fc forecast.Client, now func() time.Time, logger *slog.Logger) *StatusService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusService{windows: windows, forecast: fc, now: now, logger: logger}
}

// CommuteStatus evaluates the device's morning and evening commute legs for
// today. The window's start time serves as the morning leg and its end time
// as the evening leg; a window matching today is preferred, otherwise the
// device's latest window supplies the timezone, limits, and anchor. Returns
// ErrCodeNotFoundWindow when the device has no thresholds on file.
func (s *StatusService) CommuteStatus(ctx context.Context, deviceID string) (*Status, error) {
	rw, err := s.windows.GetCurrent(ctx, deviceID, s.now().UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}

	loc, fellBack := ResolveLocation(rw.Timezone)
	if fellBack && rw.Timezone != "" {
		s.logger.Warn("unresolvable timezone on threshold window, using host timezone",
			"device_id", deviceID, "timezone", rw.Timezone)
	}
	today := s.now().In(loc)

	morningAt, err := legInstant(today, rw.StartTime, DefaultMorningTime, loc)
	if err != nil {
		return nil, err
	}
	eveningAt, err := legInstant(today, rw.EndTime, DefaultEveningTime, loc)
	if err != nil {
		return nil, err
	}

	morning, err := s.evaluateLeg(ctx, rw, morningAt)
	if err != nil {
		return nil, err
	}
	evening, err := s.evaluateLeg(ctx, rw, eveningAt)
	if err != nil {
		return nil, err
	}

	return &Status{
		DeviceID: deviceID,
		Morning:  morning,
		Evening:  evening,
	}, nil
}

func (s *StatusService) evaluateLeg(ctx context.Context, rw *types.RideWindow, at time.Time) (LegStatus, error) {
	sample, err := s.forecast.At(ctx, rw.AnchorLocation.Lat, rw.AnchorLocation.Lon, at)
	if err != nil {
		return LegStatus{}, err
	}
	res := eval.Evaluate(sample, rw.Limits, nil)
	return LegStatus{
		At:         at,
		Exceeded:   res.Issues,
		Borderline: res.Borderline,
		Weather:    sample,
	}, nil
}

// legInstant places an HH:MM leg time on today's date in loc, falling back
// to the default when the stored value is empty.
func legInstant(today time.Time, clock, fallback string, loc *time.Location) (time.Time, error) {
	if clock == "" {
		clock = fallback
	}
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(today.Year(), today.Month(), today.Day(), h, m, 0, 0, loc), nil
}
