package commute

import (
	"context"
	"log/slog"
	"time"

	"rideaware/internal/eval"
	"rideaware/internal/forecast"
	"rideaware/internal/geo"
	"rideaware/internal/types"
)

// RouteWeatherService evaluates weather along a whole route for a planned
// departure time: one forecast sample per route point, checked against the
// rider's limits with wind components relative to the route bearing.
type RouteWeatherService struct {
	forecast forecast.Client
	logger   *slog.Logger
}

// NewRouteWeatherService creates a RouteWeatherService.
func NewRouteWeatherService(fc forecast.Client, logger *slog.Logger) *RouteWeatherService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteWeatherService{forecast: fc, logger: logger}
}

// EvaluateRoute fetches a forecast for each route point at the departure
// time and aggregates the evaluation. At least one point is required; a
// single point evaluates without wind-relative checks since no bearing
// exists.
func (s *RouteWeatherService) EvaluateRoute(ctx context.Context, points []types.GeoPoint, at time.Time, limits types.ComfortLimits) (eval.RouteResult, error) {
	if len(points) == 0 {
		return eval.RouteResult{}, types.NewAppError(
			types.ErrCodeValidationInvalidPayload,
			"at least one route point is required",
			nil,
		)
	}

	bearing := geo.RouteBearing(points)
	samples := make([]types.WeatherSample, len(points))
	for i, pt := range points {
		sample, err := s.forecast.At(ctx, pt.Lat, pt.Lon, at)
		if err != nil {
			return eval.RouteResult{}, err
		}
		samples[i] = sample
	}

	return eval.EvaluateRoute(points, samples, limits, bearing), nil
}

// WindSample is the observed wind direction at one sampled route point.
type WindSample struct {
	Location types.GeoPoint `json:"location"`
	WindDeg  float64        `json:"wind_deg"`
}

// SurveyWind samples the route at kilometer spacing and reports the wind
// direction at each sample point. The route's final point is appended when
// the last kilometer sample falls well short of it. Points with no wind data
// are skipped rather than failing the survey.
func (s *RouteWeatherService) SurveyWind(ctx context.Context, points []types.GeoPoint, at time.Time) ([]WindSample, error) {
	if len(points) == 0 {
		return nil, types.NewAppError(
			types.ErrCodeValidationInvalidPayload,
			"at least one route point is required",
			nil,
		)
	}

	sampled := geo.SampleEveryKm(points, 1.0)
	last := points[len(points)-1]
	if len(sampled) == 0 {
		sampled = append(sampled, last)
	} else if geo.DistanceKm(sampled[len(sampled)-1], last) > 0.5 {
		sampled = append(sampled, last)
	}

	results := make([]WindSample, 0, len(sampled))
	for _, pt := range sampled {
		sample, err := s.forecast.At(ctx, pt.Lat, pt.Lon, at)
		if err != nil {
			s.logger.Warn("wind survey point skipped",
				"lat", pt.Lat, "lon", pt.Lon, "error", err)
			continue
		}
		if sample.WindDirDeg == nil {
			continue
		}
		results = append(results, WindSample{Location: pt, WindDeg: *sample.WindDirDeg})
	}
	return results, nil
}
