package geo

import (
	"math"

	"github.com/tidwall/rtree"

	"evcharge/internal/domain/entities"
)

// DefaultCorridorMeters is the lateral distance used for "stations along the
// route" when the caller does not choose one.
const DefaultCorridorMeters = 300.0

// marginSlack inflates the prefilter margin so floating-point noise can never
// exclude a station the exact test would accept.
const marginSlack = 1.001

// StationsNear returns the stations whose distance to the route, taken as the
// minimum of DistancePointToSegmentMeters over every consecutive pair of route
// points, is at most maxDistanceMeters. The threshold is inclusive. A route
// with fewer than two points has no segments and yields an empty result.
// Input order is preserved.
//
// Candidates are first narrowed with an R-tree over the route's bounding box
// padded by the threshold. The padding is an upper bound on how far, in
// degrees, a point within maxDistanceMeters of the route can lie from it, so
// the prefilter never changes the result; when no such bound exists (near a
// pole or across the antimeridian) every station is tested.
func StationsNear(route []entities.Coordinate, stations []entities.Station, maxDistanceMeters float64) []entities.Station {
	result := []entities.Station{}
	if len(route) < 2 || len(stations) == 0 || maxDistanceMeters < 0 {
		return result
	}

	candidate := corridorCandidates(route, stations, maxDistanceMeters)

	for i, st := range stations {
		if candidate != nil && !candidate[i] {
			continue
		}
		if distanceToRouteMeters(st.Coordinate, route) <= maxDistanceMeters {
			result = append(result, st)
		}
	}
	return result
}

func distanceToRouteMeters(p entities.Coordinate, route []entities.Coordinate) float64 {
	best := math.Inf(1)
	for i := 0; i < len(route)-1; i++ {
		if d := DistancePointToSegmentMeters(p, route[i], route[i+1]); d < best {
			best = d
		}
	}
	return best
}

// corridorCandidates marks the stations inside the padded route bounding box.
// A nil result means the prefilter does not apply and every station is a
// candidate.
func corridorCandidates(route []entities.Coordinate, stations []entities.Station, maxDistanceMeters float64) []bool {
	b := routeBounds(route)

	angle := maxDistanceMeters / EarthRadiusMeters // radians
	latMargin := angle*180/math.Pi*marginSlack + 1e-9
	minLat := b.MinLat - latMargin
	maxLat := b.MaxLat + latMargin
	if minLat <= -90 || maxLat >= 90 {
		return nil
	}

	// Within the haversine, sin²(Δλ/2)·cosφ₁·cosφ₂ ≤ sin²(d/2R), and both
	// cosines are at least cos of the largest |latitude| in the padded box.
	cosMin := math.Cos(math.Max(math.Abs(minLat), math.Abs(maxLat)) * math.Pi / 180)
	ratio := math.Sin(angle/2) / cosMin
	if cosMin <= 0 || ratio >= 1 {
		return nil
	}
	lngMargin := 2*math.Asin(ratio)*180/math.Pi*marginSlack + 1e-9
	minLng := b.MinLng - lngMargin
	maxLng := b.MaxLng + lngMargin
	if minLng <= -180 || maxLng >= 180 {
		return nil
	}

	var tr rtree.RTree
	for i, st := range stations {
		pt := [2]float64{st.Coordinate.Latitude, st.Coordinate.Longitude}
		tr.Insert(pt, pt, i)
	}

	candidate := make([]bool, len(stations))
	tr.Search(
		[2]float64{minLat, minLng},
		[2]float64{maxLat, maxLng},
		func(min, max [2]float64, data interface{}) bool {
			if i, ok := data.(int); ok {
				candidate[i] = true
			}
			return true
		},
	)
	return candidate
}

func routeBounds(route []entities.Coordinate) entities.Bounds {
	b := entities.Bounds{
		MinLat: route[0].Latitude, MaxLat: route[0].Latitude,
		MinLng: route[0].Longitude, MaxLng: route[0].Longitude,
	}
	for _, p := range route[1:] {
		b.MinLat = math.Min(b.MinLat, p.Latitude)
		b.MaxLat = math.Max(b.MaxLat, p.Latitude)
		b.MinLng = math.Min(b.MinLng, p.Longitude)
		b.MaxLng = math.Max(b.MaxLng, p.Longitude)
	}
	return b
}
