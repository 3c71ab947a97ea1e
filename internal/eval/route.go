package eval

import (
	"math"

	"rideaware/internal/types"
)

// PointResult is the evaluation outcome for one route point.
type PointResult struct {
	Index    int                 `json:"index"`
	Location types.GeoPoint      `json:"location"`
	Weather  types.WeatherSample `json:"weather"`
	Result
}

// RouteSummary carries the extremes observed across all evaluated points.
type RouteSummary struct {
	MaxWindSpeed float64  `json:"max_wind_speed"`
	MaxRain      float64  `json:"max_rain"`
	MaxHumidity  float64  `json:"max_humidity"`
	MaxHeadwind  float64  `json:"max_headwind"`
	MaxCrosswind float64  `json:"max_crosswind"`
	MinTemp      *float64 `json:"min_temp,omitempty"`
	MaxTemp      *float64 `json:"max_temp,omitempty"`
}

// RouteResult aggregates per-point evaluations over a whole route.
type RouteResult struct {
	Status     string        `json:"status"`
	Issues     []string      `json:"issues"`
	Borderline []string      `json:"borderline"`
	Summary    RouteSummary  `json:"summary"`
	Points     []PointResult `json:"points"`
}

// EvaluateRoute evaluates one weather sample per route point against the
// limits, using the overall route bearing for wind-relative checks, and
// aggregates issues, borderline entries, and observed extremes. Points and
// samples must be index-aligned.
func EvaluateRoute(points []types.GeoPoint, samples []types.WeatherSample, limits types.ComfortLimits, routeBearingDeg *float64) RouteResult {
	out := RouteResult{
		Issues:     []string{},
		Borderline: []string{},
	}

	issueSet := make(map[string]struct{})
	borderSet := make(map[string]struct{})

	for i := range samples {
		res := Evaluate(samples[i], limits, routeBearingDeg)

		pr := PointResult{
			Index:   i,
			Weather: samples[i],
			Result:  res,
		}
		if i < len(points) {
			pr.Location = points[i]
		}
		out.Points = append(out.Points, pr)

		for _, m := range res.Issues {
			if _, dup := issueSet[m]; !dup {
				issueSet[m] = struct{}{}
				out.Issues = append(out.Issues, m)
			}
		}
		for _, m := range res.Borderline {
			if _, dup := borderSet[m]; !dup {
				borderSet[m] = struct{}{}
				out.Borderline = append(out.Borderline, m)
			}
		}

		trackMaxima(&out.Summary, samples[i], res)
	}

	switch {
	case len(out.Issues) > 0:
		out.Status = StatusAlert
	case len(out.Borderline) > 0:
		out.Status = StatusWarning
	default:
		out.Status = StatusOK
	}

	return out
}

func trackMaxima(s *RouteSummary, sample types.WeatherSample, res Result) {
	if sample.WindSpeed != nil && *sample.WindSpeed > s.MaxWindSpeed {
		s.MaxWindSpeed = *sample.WindSpeed
	}
	if sample.Rain != nil && *sample.Rain > s.MaxRain {
		s.MaxRain = *sample.Rain
	}
	if sample.Humidity != nil && *sample.Humidity > s.MaxHumidity {
		s.MaxHumidity = *sample.Humidity
	}
	if res.Headwind != nil && math.Abs(*res.Headwind) > s.MaxHeadwind {
		s.MaxHeadwind = math.Abs(*res.Headwind)
	}
	if res.Crosswind != nil && math.Abs(*res.Crosswind) > s.MaxCrosswind {
		s.MaxCrosswind = math.Abs(*res.Crosswind)
	}
	if sample.Temperature != nil {
		t := *sample.Temperature
		if s.MinTemp == nil || t < *s.MinTemp {
			v := t
			s.MinTemp = &v
		}
		if s.MaxTemp == nil || t > *s.MaxTemp {
			v := t
			s.MaxTemp = &v
		}
	}
}
