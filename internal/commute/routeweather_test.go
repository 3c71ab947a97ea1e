package commute

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideaware/internal/eval"
	"rideaware/internal/types"
)

// northWindForecast blows from due east at every point, so a northbound
// route sees pure crosswind.
type northWindForecast struct {
	windSpeed float64
	calls     int
}

func (f *northWindForecast) At(_ context.Context, _, _ float64, at time.Time) (types.WeatherSample, error) {
	f.calls++
	speed := f.windSpeed
	dir := 90.0
	return types.WeatherSample{Timestamp: at, WindSpeed: &speed, WindDirDeg: &dir}, nil
}

func (f *northWindForecast) NextHours(_ context.Context, _, _ float64, _ int) ([]types.WeatherSample, error) {
	return nil, nil
}

func northboundRoute() []types.GeoPoint {
	return []types.GeoPoint{
		{Lat: 52.50, Lon: 13.40},
		{Lat: 52.52, Lon: 13.40},
		{Lat: 52.54, Lon: 13.40},
	}
}

func TestRouteWeather_EvaluateRoute_CrosswindIssue(t *testing.T) {
	fc := &northWindForecast{windSpeed: 15}
	svc := NewRouteWeatherService(fc, nil)

	cross := 5.0
	limits := types.ComfortLimits{CrosswindSensitivity: &cross}

	res, err := svc.EvaluateRoute(context.Background(), northboundRoute(), time.Now(), limits)
	require.NoError(t, err)

	assert.Equal(t, 3, fc.calls)
	assert.Equal(t, eval.StatusAlert, res.Status)
	assert.Contains(t, res.Issues, eval.MetricCrosswind)
	assert.NotContains(t, res.Issues, eval.MetricHeadwind)
	require.Len(t, res.Points, 3)
	assert.InDelta(t, 15.0, res.Summary.MaxCrosswind, 0.1)
}

func TestRouteWeather_EvaluateRoute_NoPoints(t *testing.T) {
	svc := NewRouteWeatherService(&northWindForecast{}, nil)

	_, err := svc.EvaluateRoute(context.Background(), nil, time.Now(), types.ComfortLimits{})
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeValidationInvalidPayload, appErr.Code)
}

func TestRouteWeather_EvaluateRoute_SinglePointNoWindChecks(t *testing.T) {
	fc := &northWindForecast{windSpeed: 40}
	svc := NewRouteWeatherService(fc, nil)

	cross := 5.0
	limits := types.ComfortLimits{CrosswindSensitivity: &cross}

	res, err := svc.EvaluateRoute(context.Background(),
		[]types.GeoPoint{{Lat: 52.5, Lon: 13.4}}, time.Now(), limits)
	require.NoError(t, err)

	// No bearing, so wind components never evaluate.
	assert.Equal(t, eval.StatusOK, res.Status)
	assert.Empty(t, res.Issues)
}

func TestRouteWeather_SurveyWind_SamplesRouteAndKeepsEndpoint(t *testing.T) {
	fc := &northWindForecast{windSpeed: 10}
	svc := NewRouteWeatherService(fc, nil)

	// Roughly 4.4 km of northbound route: kilometer samples plus the final
	// point, which sits clear of the last sample.
	route := []types.GeoPoint{
		{Lat: 52.50, Lon: 13.40},
		{Lat: 52.54, Lon: 13.40},
	}
	out, err := svc.SurveyWind(context.Background(), route, time.Now())
	require.NoError(t, err)

	require.NotEmpty(t, out)
	for _, s := range out {
		assert.Equal(t, 90.0, s.WindDeg)
	}
	tail := out[len(out)-1].Location
	assert.InDelta(t, 52.54, tail.Lat, 0.01)
}

func TestRouteWeather_SurveyWind_ShortRouteFallsBackToEndpoint(t *testing.T) {
	fc := &northWindForecast{windSpeed: 10}
	svc := NewRouteWeatherService(fc, nil)

	// Under a kilometer end to end: no kilometer samples, endpoint only.
	route := []types.GeoPoint{
		{Lat: 52.500, Lon: 13.40},
		{Lat: 52.503, Lon: 13.40},
	}
	out, err := svc.SurveyWind(context.Background(), route, time.Now())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.InDelta(t, 52.503, out[0].Location.Lat, 1e-9)
}
