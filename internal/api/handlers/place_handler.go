package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"evcharge/internal/domain/entities"
	"evcharge/internal/services"
)

// PlaceHandler serves destination search and directions.
type PlaceHandler struct {
	placeService *services.PlaceSearchService
	routeService *services.RouteService
}

func NewPlaceHandler(placeService *services.PlaceSearchService, routeService *services.RouteService) *PlaceHandler {
	return &PlaceHandler{
		placeService: placeService,
		routeService: routeService,
	}
}

// Autocomplete handles GET /api/v1/places/autocomplete?input=...&near=lat,lng
func (h *PlaceHandler) Autocomplete(c *gin.Context) {
	var near *entities.Coordinate
	if v := c.Query("near"); v != "" {
		coord, err := parseLatLng(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		near = &coord
	}

	predictions := h.placeService.Autocomplete(c.Request.Context(), c.Query("input"), near)
	c.JSON(http.StatusOK, gin.H{"predictions": predictions})
}

// Details handles GET /api/v1/places/:place_id
func (h *PlaceHandler) Details(c *gin.Context) {
	place, err := h.placeService.Details(c.Request.Context(), c.Param("place_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, place)
}

// Directions handles GET /api/v1/directions?origin=lat,lng&destination=lat,lng
func (h *PlaceHandler) Directions(c *gin.Context) {
	origin, err := parseLatLng(c.Query("origin"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin: " + err.Error()})
		return
	}
	destination, err := parseLatLng(c.Query("destination"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "destination: " + err.Error()})
		return
	}

	route, err := h.routeService.Directions(c.Request.Context(), origin, destination)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}
