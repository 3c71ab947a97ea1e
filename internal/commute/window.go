// Package commute implements ride-window time arithmetic and the commute
// status service. A ride window combines a calendar date, local HH:MM start
// and end times, and a timezone into absolute instants that the snapshot and
// alert schedulers operate on.
package commute

import (
	"fmt"
	"time"

	"rideaware/internal/types"
)

// DefaultInterval is the snapshot pacing used when a ride window does not
// specify its own interval.
const DefaultInterval = 10 * time.Minute

// Window is a resolved ride window: two absolute instants in the window's
// timezone. Immutable once constructed.
type Window struct {
	DeviceID string
	RideID   string
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// ElapsedFraction returns how far through the window the given instant is,
// clamped to [0, 1].
func (w Window) ElapsedFraction(at time.Time) float64 {
	d := w.Duration()
	if d <= 0 {
		return 1
	}
	f := float64(at.Sub(w.Start)) / float64(d)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ResolveLocation resolves a timezone name to a location, falling back to the
// host's local timezone when the name is empty or unresolvable. The second
// return value reports whether the fallback was taken, so callers can log it.
func ResolveLocation(tzName string) (*time.Location, bool) {
	if tzName == "" {
		return time.Local, true
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return time.Local, true
	}
	return loc, false
}

// ParseClock parses an "HH:MM" wall-clock time.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, types.NewAppError(
			types.ErrCodeValidationInvalidTime,
			fmt.Sprintf("invalid time %q, expected HH:MM", s),
			err,
		)
	}
	return t.Hour(), t.Minute(), nil
}

// BuildWindow converts a (date, start, end, timezone) tuple into a Window of
// absolute instants. A window whose end does not lie after its start is
// coerced to a single-interval window ending at start + interval; the input
// is preserved rather than rejected so that callers submitting end-exclusive
// or same-minute windows still get snapshots collected.
//
// An interval of zero or less selects DefaultInterval.
func BuildWindow(deviceID, rideID, dateStr, startStr, endStr, tzName string, interval time.Duration) (Window, error) {
	loc, _ := ResolveLocation(tzName)

	day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return Window{}, types.NewAppError(
			types.ErrCodeValidationInvalidTime,
			fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", dateStr),
			err,
		)
	}

	startH, startM, err := ParseClock(startStr)
	if err != nil {
		return Window{}, err
	}
	endH, endM, err := ParseClock(endStr)
	if err != nil {
		return Window{}, err
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), startH, startM, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), endH, endM, 0, 0, loc)

	if interval <= 0 {
		interval = DefaultInterval
	}
	if !end.After(start) {
		end = start.Add(interval)
	}

	return Window{
		DeviceID: deviceID,
		RideID:   rideID,
		Start:    start,
		End:      end,
		Location: loc,
	}, nil
}

// WindowFor resolves the absolute window for a stored ride window record.
func WindowFor(rw types.RideWindow) (Window, error) {
	return BuildWindow(
		rw.DeviceID,
		rw.RideID,
		rw.Date,
		rw.StartTime,
		rw.EndTime,
		rw.Timezone,
		IntervalFor(rw),
	)
}

// IntervalFor returns the snapshot interval for a ride window record,
// falling back to DefaultInterval when unset.
func IntervalFor(rw types.RideWindow) time.Duration {
	if rw.IntervalMinutes <= 0 {
		return DefaultInterval
	}
	return time.Duration(rw.IntervalMinutes) * time.Minute
}
