package geo

import (
	"strconv"
	"strings"

	"evcharge/internal/domain/entities"
)

// cacheKeyPrecision rounds each bound to 3 decimal degrees (≈111 m), so
// viewports that differ by less than that share a cache entry.
const cacheKeyPrecision = 3

// ViewportCacheKey derives a stable cache key from the viewport's bounding
// box: minLat, maxLat, minLng and maxLng, each rounded to three decimals and
// joined with underscores.
//
// The key identifies a viewport exactly (after rounding). It is not spatially
// aware: a viewport contained in a cached one is still a miss.
func ViewportCacheKey(v entities.Viewport) string {
	b := v.Bounds()
	parts := []string{
		strconv.FormatFloat(b.MinLat, 'f', cacheKeyPrecision, 64),
		strconv.FormatFloat(b.MaxLat, 'f', cacheKeyPrecision, 64),
		strconv.FormatFloat(b.MinLng, 'f', cacheKeyPrecision, 64),
		strconv.FormatFloat(b.MaxLng, 'f', cacheKeyPrecision, 64),
	}
	return strings.Join(parts, "_")
}

// GridPoints partitions the viewport into rows × cols cells and returns the
// center of each cell, row by row from the south-west corner.
func GridPoints(v entities.Viewport, rows, cols int) []entities.Coordinate {
	if rows <= 0 || cols <= 0 {
		return nil
	}

	b := v.Bounds()
	points := make([]entities.Coordinate, 0, rows*cols)
	for r := 0; r < rows; r++ {
		lat := b.MinLat + (float64(r)+0.5)/float64(rows)*(b.MaxLat-b.MinLat)
		for c := 0; c < cols; c++ {
			lng := b.MinLng + (float64(c)+0.5)/float64(cols)*(b.MaxLng-b.MinLng)
			points = append(points, entities.NewCoordinate(lat, lng))
		}
	}
	return points
}
