// Package types defines the shared domain model for the RideAware backend:
// ride windows, routes, weather samples, comfort limits, snapshots, and the
// error taxonomy used across services.
package types

import (
	"time"
)

// Ride window lifecycle statuses persisted on the ride row.
const (
	RideStatusScheduled = "scheduled"
	RideStatusActive    = "active"
	RideStatusCompleted = "completed"
)

// GeoPoint is a single coordinate on a route polyline.
type GeoPoint struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

// IsZero reports whether the point is the unset zero value.
func (p GeoPoint) IsZero() bool {
	return p.Lat == 0 && p.Lon == 0
}

// Route is an ordered polyline a commuter rides, stored per device.
// A route with fewer than two points is degenerate: sampling always
// returns the single point, or nothing at all.
type Route struct {
	DeviceID    string     `json:"device_id" db:"device_id"`
	Name        string     `json:"route_name" db:"route_name"`
	Start       GeoPoint   `json:"start_location" db:"-"`
	End         GeoPoint   `json:"end_location" db:"-"`
	Points      []GeoPoint `json:"route_points" db:"route_points"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// WeatherSample is one observed or forecast weather data point. Every metric
// is optional: the forecast source may omit any of them, and a missing metric
// never counts as a threshold breach (see eval package).
type WeatherSample struct {
	Timestamp   time.Time `json:"timestamp"`
	WindSpeed   *float64  `json:"wind_speed,omitempty"`
	WindDirDeg  *float64  `json:"wind_deg,omitempty"`
	Rain        *float64  `json:"rain,omitempty"`
	Humidity    *float64  `json:"humidity,omitempty"`
	Temperature *float64  `json:"temp,omitempty"`
	Visibility  *float64  `json:"visibility,omitempty"`
	UVIndex     *float64  `json:"uvi,omitempty"`
	Pollution   *float64  `json:"pollution,omitempty"`
}

// ComfortLimits are a user's per-metric comfort bounds. Each bound is
// optional; a nil bound leaves the metric unconstrained.
type ComfortLimits struct {
	MaxWindSpeed         *float64 `json:"max_wind_speed,omitempty" validate:"omitempty,gt=0,lte=200"`
	MaxRainIntensity     *float64 `json:"max_rain_intensity,omitempty" validate:"omitempty,gte=0,lte=50"`
	MaxHumidity          *float64 `json:"max_humidity,omitempty" validate:"omitempty,gt=0,lte=100"`
	MinTemperature       *float64 `json:"min_temperature,omitempty" validate:"omitempty,gt=-50,lte=60"`
	MaxTemperature       *float64 `json:"max_temperature,omitempty" validate:"omitempty,gt=-50,lte=60"`
	HeadwindSensitivity  *float64 `json:"headwind_sensitivity,omitempty" validate:"omitempty,gte=0,lte=50"`
	CrosswindSensitivity *float64 `json:"crosswind_sensitivity,omitempty" validate:"omitempty,gte=0,lte=50"`
	MinVisibility        *float64 `json:"min_visibility,omitempty" validate:"omitempty,gt=0,lte=20000"`
	MaxUVIndex           *float64 `json:"max_uv_index,omitempty" validate:"omitempty,gt=0,lte=11"`
	MaxPollution         *float64 `json:"max_pollution,omitempty" validate:"omitempty,gt=0,lte=500"`
}

// RideWindow is one scheduled commute interval for a device: a date, local
// start/end times, a timezone, and the comfort limits in force for the ride.
// Windows are keyed by (device_id, date, start_time, end_time); RideID is the
// stable identifier snapshots and feedback link back to.
type RideWindow struct {
	RideID    string `json:"ride_id" db:"ride_id"`
	DeviceID  string `json:"device_id" db:"device_id" validate:"required,min=6,max=64"`
	Date      string `json:"date" db:"ride_date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" db:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `json:"end_time" db:"end_time" validate:"required,datetime=15:04"`
	Timezone  string `json:"timezone,omitempty" db:"timezone"`

	Limits         ComfortLimits `json:"weather_limits" db:"weather_limits"`
	AnchorLocation GeoPoint      `json:"anchor_location" db:"-" validate:"required"`

	// IntervalMinutes paces snapshot collection. Zero means the default
	// (10 minutes).
	IntervalMinutes int `json:"snapshot_interval_minutes,omitempty" db:"interval_minutes" validate:"omitempty,gte=1,lte=120"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Snapshot is one recorded weather sample tied to a ride window. At most one
// snapshot exists per (ride_id, timestamp); the uniqueness constraint lives
// in the store, and duplicate writes are absorbed as no-ops.
type Snapshot struct {
	RideID    string        `json:"ride_id" db:"ride_id"`
	DeviceID  string        `json:"device_id" db:"device_id"`
	Timestamp time.Time     `json:"timestamp" db:"snapshot_at"`
	Weather   WeatherSample `json:"weather" db:"weather"`
}

// RideRecord is the persisted history entry for one ride window. It is
// created when thresholds are upserted and later hydrated with the weather
// snapshots recorded during the window.
type RideRecord struct {
	RideID    string `json:"ride_id" db:"ride_id"`
	DeviceID  string `json:"device_id" db:"device_id"`
	Date      string `json:"date" db:"ride_date"`
	StartTime string `json:"start_time" db:"start_time"`
	EndTime   string `json:"end_time" db:"end_time"`
	Timezone  string `json:"timezone,omitempty" db:"timezone"`
	Status    string `json:"status" db:"status"`

	Feedback *string `json:"feedback,omitempty" db:"feedback"`

	// WeatherHistory is hydrated by the history service, not stored on the
	// ride row itself.
	WeatherHistory []Snapshot `json:"weather_history" db:"-"`
}

// Feedback captures a rider's post-ride report on how the recorded
// conditions actually felt.
type Feedback struct {
	DeviceID        string    `json:"device_id" db:"device_id" validate:"required,min=6,max=64"`
	RideID          string    `json:"ride_id" db:"ride_id" validate:"required"`
	Commute         string    `json:"commute" db:"commute" validate:"omitempty,oneof=start end"`
	TemperatureOK   *bool     `json:"temperature_ok,omitempty" db:"temperature_ok"`
	WindSpeedOK     *bool     `json:"wind_speed_ok,omitempty" db:"wind_speed_ok"`
	HeadwindOK      *bool     `json:"headwind_ok,omitempty" db:"headwind_ok"`
	CrosswindOK     *bool     `json:"crosswind_ok,omitempty" db:"crosswind_ok"`
	PrecipitationOK *bool     `json:"precipitation_ok,omitempty" db:"precipitation_ok"`
	HumidityOK      *bool     `json:"humidity_ok,omitempty" db:"humidity_ok"`
	Summary         *string   `json:"summary,omitempty" db:"summary"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// DeviceToken is a registered push-notification token for a device.
type DeviceToken struct {
	DeviceID  string    `json:"device_id" db:"device_id" validate:"required,min=6,max=64"`
	Token     string    `json:"push_token" db:"push_token" validate:"required"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
