package entities

import (
	"strings"
	"time"
)

type PlaceType string

const (
	PlaceTypeHome   PlaceType = "home"
	PlaceTypeWork   PlaceType = "work"
	PlaceTypeCustom PlaceType = "custom"
)

// InferPlaceType classifies a place from its name: anything mentioning
// "home" is home, then "work", otherwise custom.
func InferPlaceType(name string) PlaceType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "home"):
		return PlaceTypeHome
	case strings.Contains(lower, "work"):
		return PlaceTypeWork
	default:
		return PlaceTypeCustom
	}
}

type SavedPlace struct {
	ID         string     `json:"id"`
	UserID     string     `json:"-"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Coordinate Coordinate `json:"location"`
	Type       PlaceType  `json:"type"`
	CreatedAt  time.Time  `json:"created_at"`
}

func NewSavedPlace(id, userID, name, address string, coord Coordinate) *SavedPlace {
	return &SavedPlace{
		ID:         id,
		UserID:     userID,
		Name:       name,
		Address:    address,
		Coordinate: coord,
		Type:       InferPlaceType(name),
		CreatedAt:  time.Now(),
	}
}
