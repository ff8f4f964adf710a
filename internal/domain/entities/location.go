package entities

// Coordinate represents a geographic coordinate pair in decimal degrees.
//
// Go Learning Note — Value Types vs Reference Types:
// Coordinate is a small, immutable data holder (two float64s, 16 bytes), so it
// is passed and returned by value everywhere. Larger, mutable structs such as
// MapSession are handled through pointers instead.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// NewCoordinate creates a Coordinate value from latitude and longitude.
func NewCoordinate(lat, lng float64) Coordinate {
	return Coordinate{
		Latitude:  lat,
		Longitude: lng,
	}
}

// Valid reports whether the coordinate lies within lat [-90, 90] and
// lng [-180, 180].
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Bounds is an axis-aligned bounding box in degrees.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// Viewport is the visible map region: a camera center plus the latitude and
// longitude spans around it.
type Viewport struct {
	Center         Coordinate `json:"center"`
	LatitudeDelta  float64    `json:"latitude_delta"`
	LongitudeDelta float64    `json:"longitude_delta"`
}

// NewViewport creates a Viewport centered on (lat, lng).
func NewViewport(lat, lng, latDelta, lngDelta float64) Viewport {
	return Viewport{
		Center:         NewCoordinate(lat, lng),
		LatitudeDelta:  latDelta,
		LongitudeDelta: lngDelta,
	}
}

// Bounds derives the bounding box of the viewport (center ± span/2).
func (v Viewport) Bounds() Bounds {
	return Bounds{
		MinLat: v.Center.Latitude - v.LatitudeDelta/2,
		MaxLat: v.Center.Latitude + v.LatitudeDelta/2,
		MinLng: v.Center.Longitude - v.LongitudeDelta/2,
		MaxLng: v.Center.Longitude + v.LongitudeDelta/2,
	}
}

// Valid reports whether the viewport has a valid center and positive spans.
func (v Viewport) Valid() bool {
	return v.Center.Valid() && v.LatitudeDelta > 0 && v.LongitudeDelta > 0
}
