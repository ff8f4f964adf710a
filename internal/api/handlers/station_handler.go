package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"evcharge/internal/domain/entities"
	"evcharge/internal/geo"
	"evcharge/internal/services"
)

type StationHandler struct {
	searchService *services.StationSearchService
	routeService  *services.RouteService
}

func NewStationHandler(searchService *services.StationSearchService, routeService *services.RouteService) *StationHandler {
	return &StationHandler{
		searchService: searchService,
		routeService:  routeService,
	}
}

type SearchStationsRequest struct {
	Viewport ViewportRequest    `json:"viewport"`
	Origin   *CoordinateRequest `json:"origin"`
	Mode     string             `json:"mode" binding:"omitempty,oneof=browsing routing route_only"`
}

// Search handles POST /api/v1/stations/search
func (h *StationHandler) Search(c *gin.Context) {
	var req SearchStationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	viewport := req.Viewport.toEntity()
	origin := viewport.Center
	if req.Origin != nil {
		origin = req.Origin.toEntity()
	}

	result := h.searchService.Search(c.Request.Context(), services.SearchRequest{
		Viewport: viewport,
		Origin:   origin,
		Mode:     entities.MapMode(req.Mode),
	})
	c.JSON(http.StatusOK, result)
}

type StationsNearRouteRequest struct {
	Route             []CoordinateRequest `json:"route" binding:"omitempty,dive"`
	Polyline          string              `json:"polyline"`
	Stations          []entities.Station  `json:"stations"`
	MaxDistanceMeters float64             `json:"max_distance_meters" binding:"gte=0"`
}

// NearRoute handles POST /api/v1/stations/near-route. The route is given
// either as points or as an encoded polyline.
func (h *StationHandler) NearRoute(c *gin.Context) {
	var req StationsNearRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var route []entities.Coordinate
	if req.Polyline != "" {
		route = geo.DecodePolyline(req.Polyline)
	} else {
		route = make([]entities.Coordinate, len(req.Route))
		for i, p := range req.Route {
			route[i] = p.toEntity()
		}
	}

	stations := h.routeService.StationsNear(route, req.Stations, req.MaxDistanceMeters)
	c.JSON(http.StatusOK, gin.H{"stations": stations})
}

type DecodePolylineRequest struct {
	Encoded string `json:"encoded"`
}

// DecodePolyline handles POST /api/v1/polyline/decode
func (h *StationHandler) DecodePolyline(c *gin.Context) {
	var req DecodePolylineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": geo.DecodePolyline(req.Encoded)})
}
