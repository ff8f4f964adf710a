package services

import (
	"context"

	"go.uber.org/zap"

	"evcharge/internal/domain/entities"
)

// PlaceProvider resolves free-text destinations. *googlemaps.Client satisfies it.
type PlaceProvider interface {
	Autocomplete(ctx context.Context, input string, near *entities.Coordinate) ([]entities.Prediction, error)
	PlaceDetails(ctx context.Context, placeID string) (*entities.Place, error)
}

// PlaceSearchService backs the destination search box.
type PlaceSearchService struct {
	provider PlaceProvider
	logger   *zap.Logger
}

func NewPlaceSearchService(provider PlaceProvider, logger *zap.Logger) *PlaceSearchService {
	return &PlaceSearchService{
		provider: provider,
		logger:   logger.Named("places"),
	}
}

// Autocomplete returns suggestions for input. Provider failures yield an
// empty list so the search box simply shows nothing.
func (s *PlaceSearchService) Autocomplete(ctx context.Context, input string, near *entities.Coordinate) []entities.Prediction {
	predictions, err := s.provider.Autocomplete(ctx, input, near)
	if err != nil {
		s.logger.Warn("autocomplete failed", zap.String("input", input), zap.Error(err))
		return []entities.Prediction{}
	}
	return predictions
}

// Details resolves a prediction to a coordinate.
func (s *PlaceSearchService) Details(ctx context.Context, placeID string) (*entities.Place, error) {
	place, err := s.provider.PlaceDetails(ctx, placeID)
	if err != nil {
		s.logger.Warn("place details failed", zap.String("place_id", placeID), zap.Error(err))
		return nil, err
	}
	return place, nil
}
