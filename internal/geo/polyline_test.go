package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcharge/internal/domain/entities"
)

func TestDecodePolyline_Empty(t *testing.T) {
	got := DecodePolyline("")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDecodePolyline_Reference(t *testing.T) {
	got := DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")

	expected := []entities.Coordinate{
		{Latitude: 38.5, Longitude: -120.2},
		{Latitude: 40.7, Longitude: -120.95},
		{Latitude: 43.252, Longitude: -126.453},
	}
	require.Len(t, got, len(expected))
	for i := range expected {
		assert.InDelta(t, expected[i].Latitude, got[i].Latitude, 1e-9, "lat %d", i)
		assert.InDelta(t, expected[i].Longitude, got[i].Longitude, 1e-9, "lng %d", i)
	}
}

func TestDecodePolyline_Truncated(t *testing.T) {
	// The reference polyline cut inside the second waypoint's longitude.
	got := DecodePolyline("_p~iF~ps|U_ulLnn")
	require.Len(t, got, 1)
	assert.InDelta(t, 38.5, got[0].Latitude, 1e-9)
	assert.InDelta(t, -120.2, got[0].Longitude, 1e-9)
}

func TestPolylineRoundTrip(t *testing.T) {
	paths := map[string][]entities.Coordinate{
		"single point": {
			{Latitude: 37.7749, Longitude: -122.4194},
		},
		"city route": {
			{Latitude: 37.77493, Longitude: -122.41942},
			{Latitude: 37.78012, Longitude: -122.41101},
			{Latitude: 37.78555, Longitude: -122.40642},
			{Latitude: 37.80443, Longitude: -122.27117},
		},
		"southern and eastern hemispheres": {
			{Latitude: -33.86882, Longitude: 151.20929},
			{Latitude: -37.81362, Longitude: 144.96305},
		},
		"extremes": {
			{Latitude: 89.99999, Longitude: 179.99999},
			{Latitude: -89.99999, Longitude: -179.99999},
		},
	}

	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			got := DecodePolyline(EncodePolyline(path))
			require.Len(t, got, len(path))
			for i := range path {
				assert.InDelta(t, path[i].Latitude, got[i].Latitude, 1e-5)
				assert.InDelta(t, path[i].Longitude, got[i].Longitude, 1e-5)
			}
		})
	}
}

func TestEncodePolyline_Reference(t *testing.T) {
	path := []entities.Coordinate{
		{Latitude: 38.5, Longitude: -120.2},
		{Latitude: 40.7, Longitude: -120.95},
		{Latitude: 43.252, Longitude: -126.453},
	}
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC_mqNvxq`@", EncodePolyline(path))
}
