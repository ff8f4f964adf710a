package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"evcharge/internal/domain/entities"
	"evcharge/internal/services"
)

type SessionHandler struct {
	sessionService *services.MapSessionService
}

func NewSessionHandler(sessionService *services.MapSessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// SessionResponse is a session snapshot plus what its refetch controller is
// currently doing.
type SessionResponse struct {
	*entities.MapSession
	RefetchState      string `json:"refetch_state"`
	RefetchGeneration uint64 `json:"refetch_generation"`
}

func (h *SessionHandler) respond(c *gin.Context, status int, session *entities.MapSession) {
	state, err := h.sessionService.RefetchState(session.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	gen, err := h.sessionService.RefetchGeneration(session.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, SessionResponse{MapSession: session, RefetchState: state.String(), RefetchGeneration: gen})
}

type CreateSessionRequest struct {
	Origin   CoordinateRequest `json:"origin"`
	Viewport ViewportRequest   `json:"viewport"`
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessionService.Create(c.Request.Context(), req.Origin.toEntity(), req.Viewport.toEntity())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusCreated, session)
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, session)
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessionService.Close(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Viewport handles POST /api/v1/sessions/:id/viewport
func (h *SessionHandler) Viewport(c *gin.Context) {
	var req ViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessionService.ViewportChanged(c.Request.Context(), c.Param("id"), req.toEntity())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusAccepted, session)
}

// Suppress handles POST /api/v1/sessions/:id/suppress
func (h *SessionHandler) Suppress(c *gin.Context) {
	id := c.Param("id")
	if err := h.sessionService.Suppress(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refetch_state": services.RefetchSuppressed.String()})
}

type StationRequest struct {
	StationID string `json:"station_id"`
}

// Select handles POST /api/v1/sessions/:id/select. An empty station_id
// clears the selection.
func (h *SessionHandler) Select(c *gin.Context) {
	var req StationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessionService.SelectStation(c.Request.Context(), c.Param("id"), req.StationID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, session)
}

type FocusRequest struct {
	StationID string `json:"station_id" binding:"required"`
}

// Focus handles POST /api/v1/sessions/:id/focus
func (h *SessionHandler) Focus(c *gin.Context) {
	var req FocusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessionService.FocusStation(c.Request.Context(), c.Param("id"), req.StationID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, session)
}

type FocusPlaceRequest struct {
	PlaceID  string            `json:"place_id" binding:"required"`
	Name     string            `json:"name" binding:"required"`
	Address  string            `json:"address"`
	Location CoordinateRequest `json:"location"`
}

// FocusPlace handles POST /api/v1/sessions/:id/focus-place. The place is
// shown as a station when the current results do not already contain it.
func (h *SessionHandler) FocusPlace(c *gin.Context) {
	var req FocusPlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.sessionService.FocusPlace(c.Request.Context(), c.Param("id"), entities.Place{
		PlaceID:    req.PlaceID,
		Name:       req.Name,
		Address:    req.Address,
		Coordinate: req.Location.toEntity(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, session)
}

// RouteRequest starts at the session origin unless start is given.
type RouteRequest struct {
	Start       *CoordinateRequest `json:"start"`
	Destination CoordinateRequest  `json:"destination"`
}

// SetRoute handles POST /api/v1/sessions/:id/route
func (h *SessionHandler) SetRoute(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var start *entities.Coordinate
	if req.Start != nil {
		from := req.Start.toEntity()
		start = &from
	}

	session, err := h.sessionService.SetRoute(c.Request.Context(), c.Param("id"), start, req.Destination.toEntity())
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, session)
}

type RouteStationsRequest struct {
	MaxDistanceMeters float64 `json:"max_distance_meters" binding:"gte=0"`
}

// RouteStations handles POST /api/v1/sessions/:id/route/stations. The body
// is optional.
func (h *SessionHandler) RouteStations(c *gin.Context) {
	var req RouteStationsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	session, err := h.sessionService.StationsAlongRoute(c.Request.Context(), c.Param("id"), req.MaxDistanceMeters)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, session)
}

// ClearRoute handles DELETE /api/v1/sessions/:id/route
func (h *SessionHandler) ClearRoute(c *gin.Context) {
	session, err := h.sessionService.ClearRoute(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, session)
}
