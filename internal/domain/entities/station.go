package entities

import "errors"

// ErrRouteUnavailable is returned when the directions provider finds no
// usable route between two points. It is an expected outcome, not a failure.
var ErrRouteUnavailable = errors.New("route unavailable")

// Station is a charging location returned by the places provider.
//
// DistanceKm is always relative to the origin supplied by the caller of the
// search that produced it, never to the viewport center or the grid point the
// provider was queried from.
type Station struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Coordinate       Coordinate `json:"location"`
	Address          string     `json:"address"`
	Rating           float64    `json:"rating"`
	UserRatingsTotal int        `json:"user_ratings_total"`
	BusinessStatus   string     `json:"business_status"`
	Types            []string   `json:"types"`
	DistanceKm       float64    `json:"distance_km"`
}

// Route is a decoded driving route.
type Route struct {
	Points       []Coordinate `json:"points"`
	DistanceText string       `json:"distance_text"`
	DurationText string       `json:"duration_text"`
}

// Prediction is one autocomplete suggestion.
type Prediction struct {
	PlaceID       string `json:"place_id"`
	Description   string `json:"description"`
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text"`
}

// Place is a resolved place with a coordinate and formatted address.
type Place struct {
	PlaceID    string     `json:"place_id"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Coordinate Coordinate `json:"location"`
}
