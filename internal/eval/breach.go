package eval

import (
	"strings"

	"rideaware/internal/types"
)

// Severity levels for breaches, in descending priority.
const (
	SeverityAlert = "alert"
	SeverityWarn  = "warn"
	SeverityInfo  = "info"
)

// Breach is a single metric exceeding a rider's limit, carrying the advice
// surfaced in pre-route advisories.
type Breach struct {
	Metric   string  `json:"metric"`
	Value    float64 `json:"value"`
	Limit    float64 `json:"limit"`
	Severity string  `json:"severity"`
	Advice   string  `json:"advice"`
}

// EvaluatePoint compares one forecast point against the limits and returns
// breaches with rider-facing advice. Wind well past its limit escalates to
// alert severity; UV is informational only.
func EvaluatePoint(sample types.WeatherSample, limits types.ComfortLimits) []Breach {
	var out []Breach

	if sample.Temperature != nil {
		if limits.MinTemperature != nil && *sample.Temperature < *limits.MinTemperature {
			out = append(out, Breach{
				Metric:   MetricTemperature,
				Value:    *sample.Temperature,
				Limit:    *limits.MinTemperature,
				Severity: SeverityWarn,
				Advice:   "It will feel cold; consider thermal layers and gloves.",
			})
		}
		if limits.MaxTemperature != nil && *sample.Temperature > *limits.MaxTemperature {
			out = append(out, Breach{
				Metric:   MetricTemperature,
				Value:    *sample.Temperature,
				Limit:    *limits.MaxTemperature,
				Severity: SeverityWarn,
				Advice:   "It will be hot; hydrate well and wear breathable kit.",
			})
		}
	}

	if sample.WindSpeed != nil && limits.MaxWindSpeed != nil && *sample.WindSpeed > *limits.MaxWindSpeed {
		severity := SeverityWarn
		if *sample.WindSpeed > *limits.MaxWindSpeed*1.2 {
			severity = SeverityAlert
		}
		out = append(out, Breach{
			Metric:   MetricWindSpeed,
			Value:    *sample.WindSpeed,
			Limit:    *limits.MaxWindSpeed,
			Severity: severity,
			Advice:   "Wind is high; travel light, avoid loose bags, allow extra time.",
		})
	}

	if sample.Rain != nil && limits.MaxRainIntensity != nil && *sample.Rain > *limits.MaxRainIntensity {
		out = append(out, Breach{
			Metric:   MetricRain,
			Value:    *sample.Rain,
			Limit:    *limits.MaxRainIntensity,
			Severity: SeverityWarn,
			Advice:   "Expect rain; waterproof jacket and mudguards recommended.",
		})
	}

	if sample.Humidity != nil && limits.MaxHumidity != nil && *sample.Humidity > *limits.MaxHumidity {
		out = append(out, Breach{
			Metric:   MetricHumidity,
			Value:    *sample.Humidity,
			Limit:    *limits.MaxHumidity,
			Severity: SeverityWarn,
			Advice:   "High humidity; pace yourself and carry water.",
		})
	}

	if sample.UVIndex != nil && limits.MaxUVIndex != nil && *sample.UVIndex > *limits.MaxUVIndex {
		out = append(out, Breach{
			Metric:   MetricUVIndex,
			Value:    *sample.UVIndex,
			Limit:    *limits.MaxUVIndex,
			Severity: SeverityInfo,
			Advice:   "High UV; use sunscreen and glasses.",
		})
	}

	return out
}

// severityRank orders severities for advisory sorting; lower is more urgent.
var severityRank = map[string]int{
	SeverityAlert: 0,
	SeverityWarn:  1,
	SeverityInfo:  2,
}

// SummarizeBreaches flattens per-hour breach lists into one short advisory
// string. Advice entries are ordered by severity (alert > warn > info) and
// de-duplicated; the result is empty when no breach occurred.
func SummarizeBreaches(hourly [][]Breach) string {
	var flat []Breach
	for _, hour := range hourly {
		flat = append(flat, hour...)
	}
	if len(flat) == 0 {
		return ""
	}

	// Stable sort by severity so first occurrence order is preserved within
	// a severity class.
	for i := 1; i < len(flat); i++ {
		for j := i; j > 0 && severityRank[flat[j].Severity] < severityRank[flat[j-1].Severity]; j-- {
			flat[j], flat[j-1] = flat[j-1], flat[j]
		}
	}

	seen := make(map[string]struct{}, len(flat))
	var ordered []string
	for _, b := range flat {
		if _, dup := seen[b.Advice]; dup {
			continue
		}
		seen[b.Advice] = struct{}{}
		ordered = append(ordered, b.Advice)
	}

	return strings.Join(ordered, " • ")
}
