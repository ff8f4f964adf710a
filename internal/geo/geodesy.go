// Package geo holds the geometric core behind station search: great-circle
// distances, the encoded polyline codec, viewport gridding and cache keys, and
// the route corridor filter.
//
// Go Learning Note — "github.com/golang/geo/s2":
// s2 is Google's spherical geometry library. s2.LatLng.Distance implements the
// haversine formula with the square-root argument clamped, which is exactly
// what a numerically stable great-circle distance needs for coincident and
// antipodal points. The result is an s1.Angle; multiplying its radians by the
// Earth's radius turns it into a length.
package geo

import (
	"github.com/golang/geo/s2"

	"evcharge/internal/domain/entities"
)

const (
	EarthRadiusKm     = 6371.0
	EarthRadiusMeters = 6371000.0

	// segmentEpsilon keeps the projection denominator away from zero for
	// degenerate segments (start == end), which yields t ≈ 0.
	segmentEpsilon = 1e-6
)

// centralAngle returns the great-circle angle between a and b in radians.
// The arguments are put in a canonical order first so that the result is
// bit-for-bit symmetric; floating-point products are not associative.
func centralAngle(a, b entities.Coordinate) float64 {
	if b.Latitude < a.Latitude || (b.Latitude == a.Latitude && b.Longitude < a.Longitude) {
		a, b = b, a
	}
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians()
}

// DistanceKm returns the haversine great-circle distance between a and b in
// kilometers (Earth radius 6371 km).
func DistanceKm(a, b entities.Coordinate) float64 {
	return centralAngle(a, b) * EarthRadiusKm
}

// DistanceMeters is DistanceKm in meters (Earth radius 6 371 000 m).
func DistanceMeters(a, b entities.Coordinate) float64 {
	return centralAngle(a, b) * EarthRadiusMeters
}

// DistancePointToSegmentMeters approximates the distance from p to the
// segment [segStart, segEnd].
//
// The projection treats latitude/longitude as planar Cartesian coordinates:
// p is projected onto the line through the segment, the projection parameter
// t is clamped to [0,1] so the nearest point lies on the segment itself, and
// the great-circle distance from p to that point is returned. This is only
// accurate for short segments (up to a few kilometers), where the planar
// nearest point is close to the geodesic one. It is not an exact geodesic
// cross-track distance.
func DistancePointToSegmentMeters(p, segStart, segEnd entities.Coordinate) float64 {
	abx := segEnd.Longitude - segStart.Longitude
	aby := segEnd.Latitude - segStart.Latitude
	apx := p.Longitude - segStart.Longitude
	apy := p.Latitude - segStart.Latitude

	mag := abx*abx + aby*aby
	t := (apx*abx + apy*aby) / (mag + segmentEpsilon)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	proj := entities.Coordinate{
		Latitude:  segStart.Latitude + t*aby,
		Longitude: segStart.Longitude + t*abx,
	}
	return DistanceMeters(p, proj)
}
