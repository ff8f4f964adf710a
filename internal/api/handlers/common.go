package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"evcharge/internal/domain/entities"
	"evcharge/internal/repository"
	"evcharge/internal/services"
	"evcharge/pkg/googlemaps"
)

// CoordinateRequest is a lat/lng pair in a request body. Pointers let the
// validator tell a missing field from 0.
type CoordinateRequest struct {
	Lat *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" binding:"required,min=-180,max=180"`
}

func (r CoordinateRequest) toEntity() entities.Coordinate {
	return entities.NewCoordinate(*r.Lat, *r.Lng)
}

// ViewportRequest is a map camera region in a request body.
type ViewportRequest struct {
	Center         CoordinateRequest `json:"center"`
	LatitudeDelta  float64           `json:"latitude_delta" binding:"required,gt=0,lte=180"`
	LongitudeDelta float64           `json:"longitude_delta" binding:"required,gt=0,lte=360"`
}

func (r ViewportRequest) toEntity() entities.Viewport {
	return entities.Viewport{
		Center:         r.Center.toEntity(),
		LatitudeDelta:  r.LatitudeDelta,
		LongitudeDelta: r.LongitudeDelta,
	}
}

// parseLatLng parses a "lat,lng" query value.
func parseLatLng(s string) (entities.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return entities.Coordinate{}, fmt.Errorf("expected lat,lng but got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return entities.Coordinate{}, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return entities.Coordinate{}, fmt.Errorf("invalid longitude: %w", err)
	}
	c := entities.NewCoordinate(lat, lng)
	if !c.Valid() {
		return entities.Coordinate{}, fmt.Errorf("coordinate %q out of range", s)
	}
	return c, nil
}

// respondError maps service errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	var statusErr *googlemaps.StatusError

	switch {
	case errors.Is(err, entities.ErrRouteUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"error": "route_unavailable"})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, services.ErrStationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
	case errors.Is(err, googlemaps.ErrPlaceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "place not found"})
	case errors.Is(err, repository.ErrSavedPlaceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "saved place not found"})
	case errors.Is(err, services.ErrNoRoute):
		c.JSON(http.StatusConflict, gin.H{"error": "session has no route"})
	case errors.Is(err, entities.ErrInvalidModeTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid map mode transition"})
	case errors.Is(err, services.ErrAlreadySaved):
		c.JSON(http.StatusConflict, gin.H{"error": "place already saved"})
	case errors.Is(err, services.ErrInvalidViewport),
		errors.Is(err, services.ErrInvalidLocation),
		errors.Is(err, services.ErrInvalidSavedPlace),
		errors.Is(err, services.ErrInvalidPlace):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, googlemaps.ErrMissingAPIKey):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "maps provider is not configured"})
	case errors.As(err, &statusErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "maps provider error", "status": statusErr.Status})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
