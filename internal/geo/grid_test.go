package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcharge/internal/domain/entities"
)

func TestViewportCacheKey(t *testing.T) {
	base := entities.NewViewport(37.775, -122.415, 0.01, 0.01)

	tests := []struct {
		name     string
		viewport entities.Viewport
		sameKey  bool
	}{
		{name: "Identical viewport", viewport: base, sameKey: true},
		{name: "Shift below rounding precision", viewport: entities.NewViewport(37.7751, -122.4151, 0.01, 0.01), sameKey: true},
		{name: "Shift above rounding precision", viewport: entities.NewViewport(37.785, -122.415, 0.01, 0.01), sameKey: false},
		{name: "Zoomed out", viewport: entities.NewViewport(37.775, -122.415, 0.02, 0.02), sameKey: false},
	}

	baseKey := ViewportCacheKey(base)
	assert.Equal(t, "37.770_37.780_-122.420_-122.410", baseKey)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := ViewportCacheKey(tt.viewport)
			if tt.sameKey {
				assert.Equal(t, baseKey, key)
			} else {
				assert.NotEqual(t, baseKey, key)
			}
		})
	}
}

func TestGridPoints(t *testing.T) {
	v := entities.NewViewport(10, 20, 3, 6)

	points := GridPoints(v, 3, 3)
	require.Len(t, points, 9)

	// Cell centers of a 3x3 grid over lat [8.5, 11.5], lng [17, 23].
	expectedLats := []float64{9, 10, 11}
	expectedLngs := []float64{18, 20, 22}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			p := points[r*3+c]
			assert.InDelta(t, expectedLats[r], p.Latitude, 1e-9)
			assert.InDelta(t, expectedLngs[c], p.Longitude, 1e-9)
		}
	}
}

func TestGridPoints_InvalidShape(t *testing.T) {
	v := entities.NewViewport(10, 20, 1, 1)
	assert.Empty(t, GridPoints(v, 0, 3))
	assert.Empty(t, GridPoints(v, 3, -1))
	assert.Len(t, GridPoints(v, 1, 1), 1)
	assert.Equal(t, v.Center, GridPoints(v, 1, 1)[0])
}
