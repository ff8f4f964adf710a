package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"evcharge/internal/config"
	"evcharge/internal/domain/entities"
	"evcharge/internal/geo"
)

// DirectionsProvider computes a driving route. *googlemaps.Client satisfies it.
type DirectionsProvider interface {
	Directions(ctx context.Context, origin, destination entities.Coordinate) (*entities.Route, error)
}

// RouteService fetches driving routes and picks the stations near them.
type RouteService struct {
	provider DirectionsProvider
	cfg      config.CorridorConfig
	logger   *zap.Logger
}

func NewRouteService(provider DirectionsProvider, cfg config.CorridorConfig, logger *zap.Logger) *RouteService {
	return &RouteService{
		provider: provider,
		cfg:      cfg,
		logger:   logger.Named("routes"),
	}
}

// Directions returns the driving route from origin to destination, or
// entities.ErrRouteUnavailable when there is none.
func (s *RouteService) Directions(ctx context.Context, origin, destination entities.Coordinate) (*entities.Route, error) {
	route, err := s.provider.Directions(ctx, origin, destination)
	if errors.Is(err, entities.ErrRouteUnavailable) {
		s.logger.Info("no route found",
			zap.Float64("origin_lat", origin.Latitude), zap.Float64("origin_lng", origin.Longitude),
			zap.Float64("dest_lat", destination.Latitude), zap.Float64("dest_lng", destination.Longitude))
		return nil, err
	}
	if err != nil {
		s.logger.Warn("directions request failed", zap.Error(err))
		return nil, fmt.Errorf("fetch directions: %w", err)
	}

	s.logger.Info("route computed",
		zap.Int("points", len(route.Points)),
		zap.String("distance", route.DistanceText),
		zap.String("duration", route.DurationText))
	return route, nil
}

// StationsNear filters stations to those within maxDistanceMeters of the
// route. A non-positive distance uses the configured corridor width.
func (s *RouteService) StationsNear(route []entities.Coordinate, stations []entities.Station, maxDistanceMeters float64) []entities.Station {
	if maxDistanceMeters <= 0 {
		maxDistanceMeters = s.cfg.MaxDistanceMeters
	}
	return geo.StationsNear(route, stations, maxDistanceMeters)
}
