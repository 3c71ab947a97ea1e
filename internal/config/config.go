// Package config defines the configuration for the RideAware backend.
// Configuration is loaded once at process start and is immutable thereafter.
// Values come from the OS environment, with a local .env file as a
// lower-priority source. Any missing required value fails startup.
package config

import "time"

// Config is the top-level configuration struct. It is populated once during
// initialization and never modified. Components receive only the subsets
// they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server    ServerConfig
	Database  DatabaseConfig
	Forecast  ForecastConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	ReadTimeout        time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout       time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout    time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// ForecastConfig holds the OpenWeather client settings.
type ForecastConfig struct {
	APIKey  string        `envconfig:"OPENWEATHER_API_KEY" validate:"required"`
	BaseURL string        `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org/data/3.0/onecall"`
	Timeout time.Duration `envconfig:"FORECAST_TIMEOUT" default:"10s"`
	// RequestsPerMinute caps the call rate against the upstream API.
	RequestsPerMinute int `envconfig:"FORECAST_REQUESTS_PER_MINUTE" default:"50"`
}

// SchedulerConfig holds snapshot and alert scheduling parameters.
type SchedulerConfig struct {
	// SnapshotInterval paces live collection and backfill steps when a ride
	// window does not specify its own interval.
	SnapshotInterval time.Duration `envconfig:"SNAPSHOT_INTERVAL" default:"10m"`
	// MaxBackfillPoints bounds the cost of a single backfill walk.
	MaxBackfillPoints int `envconfig:"MAX_BACKFILL_POINTS" default:"48"`
	// PreRouteLead is how long before the window start the advisory fires.
	PreRouteLead time.Duration `envconfig:"PRE_ROUTE_LEAD" default:"3h"`
	// ReminderDelay is how long after the window end the feedback prompt fires.
	ReminderDelay time.Duration `envconfig:"REMINDER_DELAY" default:"1h"`
	// ForecastHours is how many upcoming hours the pre-route check inspects.
	ForecastHours int `envconfig:"PRE_ROUTE_FORECAST_HOURS" default:"6"`
}
