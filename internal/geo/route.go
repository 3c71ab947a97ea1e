// Package geo provides route geometry helpers: great-circle distances along a
// polyline, position interpolation by distance travelled, bearings, and
// fixed-interval resampling. Distances use the S2 library's spherical
// geometry; interpolation within a segment is planar, which is an accepted
// approximation at commute distances.
package geo

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"

	"rideaware/internal/types"
)

// EarthRadiusKm is the Earth's mean radius in kilometers.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points in
// kilometers.
func DistanceKm(a, b types.GeoPoint) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// CumulativeKm computes the running distance from the start of the polyline
// to each point, in kilometers, plus the total route length. Degenerate
// polylines (zero or one point) yield a total of zero.
func CumulativeKm(points []types.GeoPoint) ([]float64, float64) {
	if len(points) == 0 {
		return nil, 0
	}
	cum := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		cum[i] = cum[i-1] + DistanceKm(points[i-1], points[i])
	}
	return cum, cum[len(cum)-1]
}

// InterpolateAt returns the position targetKm along the polyline. The target
// is clamped to [0, total]; the bracketing segment is located by binary
// search on the cumulative distances and the position is linearly
// interpolated within it. A single-point route always yields that point; an
// empty route yields a not_found_route error.
func InterpolateAt(points []types.GeoPoint, cumulative []float64, targetKm float64) (types.GeoPoint, error) {
	switch len(points) {
	case 0:
		return types.GeoPoint{}, types.NewAppError(types.ErrCodeNotFoundRoute, "route has no points", nil)
	case 1:
		return points[0], nil
	}

	total := cumulative[len(cumulative)-1]
	if targetKm <= 0 {
		return points[0], nil
	}
	if targetKm >= total {
		return points[len(points)-1], nil
	}

	// First index with cumulative >= target; the segment is [i-1, i].
	i := sort.SearchFloat64s(cumulative, targetKm)
	if i == 0 {
		return points[0], nil
	}

	segStart := cumulative[i-1]
	segLen := cumulative[i] - segStart
	if segLen <= 0 {
		// Repeated waypoint; either endpoint is correct.
		return points[i], nil
	}

	ratio := (targetKm - segStart) / segLen
	return types.GeoPoint{
		Lat: points[i-1].Lat + ratio*(points[i].Lat-points[i-1].Lat),
		Lon: points[i-1].Lon + ratio*(points[i].Lon-points[i-1].Lon),
	}, nil
}

// Bearing returns the initial bearing (forward azimuth) from a to b in
// degrees, where 0 is north and 90 is east.
func Bearing(a, b types.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	lonDiff := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(lonDiff) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lonDiff)
	bearing := math.Atan2(y, x) * 180 / math.Pi

	return math.Mod(bearing+360, 360)
}

// RouteBearing returns the overall bearing from the first to the last point
// of the polyline, or nil for routes with fewer than two points.
func RouteBearing(points []types.GeoPoint) *float64 {
	if len(points) < 2 {
		return nil
	}
	b := Bearing(points[0], points[len(points)-1])
	return &b
}

// SampleEveryKm returns positions spaced stepKm apart along the polyline,
// excluding the start point. Routes with fewer than two points yield no
// samples.
func SampleEveryKm(points []types.GeoPoint, stepKm float64) []types.GeoPoint {
	if len(points) < 2 || stepKm <= 0 {
		return nil
	}

	var sampled []types.GeoPoint
	distanceSoFar := 0.0
	nextSampleAt := stepKm
	for i := 0; i < len(points)-1; i++ {
		segLen := DistanceKm(points[i], points[i+1])
		for distanceSoFar+segLen >= nextSampleAt {
			ratio := (nextSampleAt - distanceSoFar) / segLen
			sampled = append(sampled, types.GeoPoint{
				Lat: points[i].Lat + ratio*(points[i+1].Lat-points[i].Lat),
				Lon: points[i].Lon + ratio*(points[i+1].Lon-points[i].Lon),
			})
			nextSampleAt += stepKm
		}
		distanceSoFar += segLen
	}
	return sampled
}
