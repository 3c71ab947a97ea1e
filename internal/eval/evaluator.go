// Package eval compares weather samples against a rider's comfort limits.
// Every limit and every sample metric is optional; a metric missing from the
// sample is never evaluated, so absence can never count as a breach. That
// invariant is enforced by the pointer-typed fields on types.WeatherSample
// and types.ComfortLimits rather than by convention.
package eval

import (
	"math"

	"rideaware/internal/types"
)

// Metric identifiers reported in issue and borderline lists.
const (
	MetricWindSpeed   = "wind_speed"
	MetricRain        = "rain"
	MetricHumidity    = "humidity"
	MetricTemperature = "temperature"
	MetricVisibility  = "visibility"
	MetricUVIndex     = "uv_index"
	MetricPollution   = "pollution"
	MetricHeadwind    = "headwind"
	MetricCrosswind   = "crosswind"
)

// borderlineMargin is the fraction of a limit within which a value counts as
// borderline.
const borderlineMargin = 0.2

// Result is the outcome of evaluating one weather sample. Issues and
// Borderline are independent classifications: a value just past its limit
// appears in both.
type Result struct {
	Issues     []string `json:"issues"`
	Borderline []string `json:"borderline"`

	// Headwind and Crosswind are the wind components relative to the route
	// bearing, set only when both the sample wind direction and a bearing
	// were available.
	Headwind  *float64 `json:"headwind,omitempty"`
	Crosswind *float64 `json:"crosswind,omitempty"`
}

// Ride status labels produced by AggregateStatus.
const (
	StatusAlert   = "alert"
	StatusWarning = "warning"
	StatusOK      = "ok"
)

// Evaluate compares a sample against the limits. When routeBearingDeg is
// non-nil and the sample carries a wind direction, headwind and crosswind
// components are derived and checked against the respective sensitivities.
//
// Evaluate is pure: identical inputs always yield identical results.
func Evaluate(sample types.WeatherSample, limits types.ComfortLimits, routeBearingDeg *float64) Result {
	var res Result

	checkMax(&res, MetricWindSpeed, sample.WindSpeed, limits.MaxWindSpeed)
	checkMax(&res, MetricRain, sample.Rain, limits.MaxRainIntensity)
	checkMax(&res, MetricHumidity, sample.Humidity, limits.MaxHumidity)
	checkMin(&res, MetricTemperature, sample.Temperature, limits.MinTemperature)
	checkMax(&res, MetricTemperature, sample.Temperature, limits.MaxTemperature)
	checkMin(&res, MetricVisibility, sample.Visibility, limits.MinVisibility)
	checkMax(&res, MetricUVIndex, sample.UVIndex, limits.MaxUVIndex)
	checkMax(&res, MetricPollution, sample.Pollution, limits.MaxPollution)

	if sample.WindSpeed != nil && sample.WindDirDeg != nil && routeBearingDeg != nil {
		rel := (*sample.WindDirDeg - *routeBearingDeg) * math.Pi / 180
		headwind := *sample.WindSpeed * math.Cos(rel)
		crosswind := *sample.WindSpeed * math.Sin(rel)
		res.Headwind = &headwind
		res.Crosswind = &crosswind

		absHead := math.Abs(headwind)
		absCross := math.Abs(crosswind)
		checkMax(&res, MetricHeadwind, &absHead, limits.HeadwindSensitivity)
		checkMax(&res, MetricCrosswind, &absCross, limits.CrosswindSensitivity)
	}

	return res
}

// AggregateStatus reduces a set of results to a single ride status: alert if
// any issue exists, warning if only borderline entries exist, ok otherwise.
func AggregateStatus(results []Result) string {
	anyBorderline := false
	for _, r := range results {
		if len(r.Issues) > 0 {
			return StatusAlert
		}
		if len(r.Borderline) > 0 {
			anyBorderline = true
		}
	}
	if anyBorderline {
		return StatusWarning
	}
	return StatusOK
}

// checkMax records an issue when value exceeds limit and a borderline entry
// when value lies within borderlineMargin of the limit.
func checkMax(res *Result, metric string, value, limit *float64) {
	if value == nil || limit == nil {
		return
	}
	if *value > *limit {
		res.Issues = appendMetric(res.Issues, metric)
	}
	if withinMargin(*value, *limit) {
		res.Borderline = appendMetric(res.Borderline, metric)
	}
}

// checkMin records an issue when value falls below limit and a borderline
// entry when value lies within borderlineMargin of the limit.
func checkMin(res *Result, metric string, value, limit *float64) {
	if value == nil || limit == nil {
		return
	}
	if *value < *limit {
		res.Issues = appendMetric(res.Issues, metric)
	}
	if withinMargin(*value, *limit) {
		res.Borderline = appendMetric(res.Borderline, metric)
	}
}

// appendMetric adds metric to the list unless it is already present.
// Temperature is checked against both its min and max limit, and a value
// near both must still be reported once.
func appendMetric(list []string, metric string) []string {
	for _, m := range list {
		if m == metric {
			return list
		}
	}
	return append(list, metric)
}

func withinMargin(value, limit float64) bool {
	return math.Abs(value-limit) <= borderlineMargin*math.Abs(limit)
}
