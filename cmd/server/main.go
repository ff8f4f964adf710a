package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"evcharge/internal/api"
	"evcharge/internal/api/handlers"
	"evcharge/internal/api/middleware"
	"evcharge/internal/config"
	"evcharge/internal/repository"
	"evcharge/internal/repository/memory"
	"evcharge/internal/repository/sqlite"
	"evcharge/internal/services"
	"evcharge/pkg/googlemaps"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Initialize the maps provider
	mapsClient := googlemaps.NewClient(googlemaps.Options{
		APIKey:    cfg.Maps.APIKey,
		BaseURL:   cfg.Maps.BaseURL,
		Timeout:   cfg.Maps.RequestTimeout,
		PageDelay: cfg.Maps.PageDelay,
		MaxPages:  cfg.Maps.MaxPages,
	}, logger)
	if !mapsClient.HasAPIKey() {
		logger.Warn("MAPS_API_KEY is not set; station searches will return no results")
	}

	// Initialize repositories
	var savedPlaceRepo repository.SavedPlaceRepository
	if cfg.Storage.DBPath == "" {
		savedPlaceRepo = memory.NewSavedPlaceRepository()
		logger.Info("saved places kept in memory")
	} else {
		db, err := sqlite.Open(cfg.Storage.DBPath, logger)
		if err != nil {
			logger.Fatal("failed to open database", zap.String("path", cfg.Storage.DBPath), zap.Error(err))
		}
		defer db.Close()
		savedPlaceRepo = sqlite.NewSavedPlaceRepository(db)
	}
	sessionRepo := memory.NewSessionRepository()

	// Initialize services
	searchService := services.NewStationSearchService(mapsClient, cfg.Search, logger)
	routeService := services.NewRouteService(mapsClient, cfg.Corridor, logger)
	placeService := services.NewPlaceSearchService(mapsClient, logger)
	savedPlaceService := services.NewSavedPlaceService(savedPlaceRepo, logger)
	sessionService := services.NewMapSessionService(sessionRepo, searchService, routeService, cfg.Refetch, cfg.Sessions, services.SystemClock(), logger)
	defer sessionService.Shutdown()

	// Initialize handlers
	stationHandler := handlers.NewStationHandler(searchService, routeService)
	placeHandler := handlers.NewPlaceHandler(placeService, routeService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	savedPlaceHandler := handlers.NewSavedPlaceHandler(savedPlaceService)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
	done := make(chan struct{})
	defer close(done)
	go limiter.Run(done)
	go sessionService.Run(done)

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; saved-place endpoints will answer 503")
	}

	// Setup router
	router := api.NewRouter(stationHandler, placeHandler, sessionHandler, savedPlaceHandler, limiter, cfg.Auth.JWTSecret)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestLogger(logger))
	router.Setup(engine)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting EV charging server", zap.String("addr", cfg.Server.Port))
	if err := serve(server, quit, cfg.Server.ShutdownTimeout, logger); err != nil {
		// Returning instead of exiting lets the deferred cleanup run.
		logger.Error("server failed", zap.Error(err))
	}
}

// serve runs server until a signal arrives on quit or the listener fails,
// then shuts it down within timeout. A listen failure is returned.
func serve(server *http.Server, quit <-chan os.Signal, timeout time.Duration, logger *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("shutting down")
	case err := <-serveErr:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
