package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"evcharge/internal/api/middleware"
	"evcharge/internal/services"
)

type SavedPlaceHandler struct {
	savedPlaceService *services.SavedPlaceService
}

func NewSavedPlaceHandler(savedPlaceService *services.SavedPlaceService) *SavedPlaceHandler {
	return &SavedPlaceHandler{savedPlaceService: savedPlaceService}
}

// List handles GET /api/v1/saved-places
func (h *SavedPlaceHandler) List(c *gin.Context) {
	places, err := h.savedPlaceService.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}

type SavePlaceRequest struct {
	Name     string            `json:"name" binding:"required"`
	Address  string            `json:"address"`
	Location CoordinateRequest `json:"location"`
}

// Save handles POST /api/v1/saved-places
func (h *SavedPlaceHandler) Save(c *gin.Context) {
	var req SavePlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	place, err := h.savedPlaceService.Save(c.Request.Context(), middleware.GetUserID(c), services.SavePlaceRequest{
		Name:       req.Name,
		Address:    req.Address,
		Coordinate: req.Location.toEntity(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, place)
}

// Delete handles DELETE /api/v1/saved-places/:id
func (h *SavedPlaceHandler) Delete(c *gin.Context) {
	if err := h.savedPlaceService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
