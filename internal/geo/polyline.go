package geo

import (
	"math"
	"strings"

	"evcharge/internal/domain/entities"
)

const (
	polylineOffset   = 63
	polylineChunk    = 0x1f
	polylineContinue = 0x20
	polylineScale    = 1e5
)

// DecodePolyline decodes a string in the Encoded Polyline Algorithm Format
// into coordinates.
//
// Every waypoint is a latitude delta followed by a longitude delta. Each delta
// is a little-endian stream of 5-bit chunks (offset by 63, bit 0x20 marks a
// continuation); the lowest bit of the assembled integer is the sign flag, so
// an odd value decodes to ^(v >> 1) and an even one to v >> 1. The deltas are
// accumulated into two independent running sums and scaled by 1e-5.
//
// An empty string yields an empty slice. Input that ends in the middle of a
// waypoint stops decoding at the last complete waypoint.
func DecodePolyline(encoded string) []entities.Coordinate {
	path := make([]entities.Coordinate, 0, len(encoded)/4)

	index, lat, lng := 0, 0, 0
	for index < len(encoded) {
		dlat, next, ok := decodeValue(encoded, index)
		if !ok {
			break
		}
		dlng, next, ok := decodeValue(encoded, next)
		if !ok {
			break
		}
		index = next

		lat += dlat
		lng += dlng
		path = append(path, entities.Coordinate{
			Latitude:  float64(lat) / polylineScale,
			Longitude: float64(lng) / polylineScale,
		})
	}

	return path
}

// decodeValue reads one signed delta starting at index. ok is false when the
// input ends before the terminating chunk.
func decodeValue(encoded string, index int) (value int, next int, ok bool) {
	shift, result := 0, 0
	for {
		if index >= len(encoded) {
			return 0, index, false
		}
		b := int(encoded[index]) - polylineOffset
		index++
		result |= (b & polylineChunk) << shift
		shift += 5
		if b < polylineContinue {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, true
	}
	return result >> 1, index, true
}

// EncodePolyline is the inverse of DecodePolyline at 1e-5 precision.
func EncodePolyline(points []entities.Coordinate) string {
	var sb strings.Builder
	sb.Grow(len(points) * 8)

	prevLat, prevLng := 0, 0
	for _, p := range points {
		lat := int(math.Round(p.Latitude * polylineScale))
		lng := int(math.Round(p.Longitude * polylineScale))
		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lng-prevLng)
		prevLat, prevLng = lat, lng
	}

	return sb.String()
}

func encodeValue(sb *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= polylineContinue {
		sb.WriteByte(byte((polylineContinue | (u & polylineChunk)) + polylineOffset))
		u >>= 5
	}
	sb.WriteByte(byte(u + polylineOffset))
}
