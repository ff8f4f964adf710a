package api

import (
	"github.com/gin-gonic/gin"

	"evcharge/internal/api/handlers"
	"evcharge/internal/api/middleware"
)

type Router struct {
	stationHandler    *handlers.StationHandler
	placeHandler      *handlers.PlaceHandler
	sessionHandler    *handlers.SessionHandler
	savedPlaceHandler *handlers.SavedPlaceHandler
	limiter           *middleware.RateLimiter
	jwtSecret         string
}

func NewRouter(
	stationHandler *handlers.StationHandler,
	placeHandler *handlers.PlaceHandler,
	sessionHandler *handlers.SessionHandler,
	savedPlaceHandler *handlers.SavedPlaceHandler,
	limiter *middleware.RateLimiter,
	jwtSecret string,
) *Router {
	return &Router{
		stationHandler:    stationHandler,
		placeHandler:      placeHandler,
		sessionHandler:    sessionHandler,
		savedPlaceHandler: savedPlaceHandler,
		limiter:           limiter,
		jwtSecret:         jwtSecret,
	}
}

func (r *Router) Setup(engine *gin.Engine) {
	// Health check endpoint
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")

	// Provider-backed endpoints share the per-IP limit
	search := v1.Group("/")
	if r.limiter != nil {
		search.Use(middleware.RateLimit(r.limiter))
	}
	{
		search.POST("/stations/search", r.stationHandler.Search)
		search.GET("/places/autocomplete", r.placeHandler.Autocomplete)
		search.GET("/places/:place_id", r.placeHandler.Details)
		search.GET("/directions", r.placeHandler.Directions)
	}

	// Pure geometry, no provider calls
	v1.POST("/stations/near-route", r.stationHandler.NearRoute)
	v1.POST("/polyline/decode", r.stationHandler.DecodePolyline)

	// Map sessions. Creating, panning and routing reach the provider and
	// count against the limit.
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", r.limited(r.sessionHandler.Create)...)
		sessions.GET("/:id", r.sessionHandler.Get)
		sessions.DELETE("/:id", r.sessionHandler.Delete)
		sessions.POST("/:id/viewport", r.limited(r.sessionHandler.Viewport)...)
		sessions.POST("/:id/suppress", r.sessionHandler.Suppress)
		sessions.POST("/:id/select", r.sessionHandler.Select)
		sessions.POST("/:id/focus", r.sessionHandler.Focus)
		sessions.POST("/:id/focus-place", r.sessionHandler.FocusPlace)
		sessions.POST("/:id/route", r.limited(r.sessionHandler.SetRoute)...)
		sessions.DELETE("/:id/route", r.sessionHandler.ClearRoute)
		sessions.POST("/:id/route/stations", r.sessionHandler.RouteStations)
	}

	// Saved places belong to the token subject
	saved := v1.Group("/saved-places")
	saved.Use(middleware.JWTAuth(r.jwtSecret))
	{
		saved.GET("", r.savedPlaceHandler.List)
		saved.POST("", r.savedPlaceHandler.Save)
		saved.DELETE("/:id", r.savedPlaceHandler.Delete)
	}
}

// limited prefixes handler with the rate limit middleware when one is set.
func (r *Router) limited(handler gin.HandlerFunc) []gin.HandlerFunc {
	if r.limiter == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{middleware.RateLimit(r.limiter), handler}
}
