// Package forecast provides the weather data source for schedulers and
// services. The production implementation calls the OpenWeather One Call API
// behind a circuit breaker, a client-side rate limiter, and bounded
// timeouts; consumers only see the Client interface.
package forecast

import (
	"context"
	"time"

	"rideaware/internal/types"
)

// Client is the forecast source contract. Both operations are synchronous
// and bounded by the client's configured timeout on top of ctx.
type Client interface {
	// At returns the hourly forecast sample closest to the given instant
	// for the coordinate.
	At(ctx context.Context, lat, lon float64, at time.Time) (types.WeatherSample, error)

	// NextHours returns up to the given number of upcoming hourly samples
	// for the coordinate, in chronological order.
	NextHours(ctx context.Context, lat, lon float64, hours int) ([]types.WeatherSample, error)
}
