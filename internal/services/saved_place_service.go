package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"evcharge/internal/domain/entities"
	"evcharge/internal/repository"
	"evcharge/pkg/utils"
)

// Two places closer than this in both latitude and longitude are the same.
const duplicateToleranceDegrees = 0.0001

var (
	ErrAlreadySaved      = errors.New("place already saved")
	ErrInvalidSavedPlace = errors.New("saved place needs a name and a valid location")
)

// SavePlaceRequest is the input to SavedPlaceService.Save.
type SavePlaceRequest struct {
	Name       string
	Address    string
	Coordinate entities.Coordinate
}

// SavedPlaceService manages each user's list of saved destinations.
type SavedPlaceService struct {
	repo   repository.SavedPlaceRepository
	logger *zap.Logger
}

func NewSavedPlaceService(repo repository.SavedPlaceRepository, logger *zap.Logger) *SavedPlaceService {
	return &SavedPlaceService{
		repo:   repo,
		logger: logger.Named("saved_places"),
	}
}

// List returns the user's places, oldest first.
func (s *SavedPlaceService) List(ctx context.Context, userID string) ([]*entities.SavedPlace, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Save stores a new place for the user. The type is inferred from the name.
func (s *SavedPlaceService) Save(ctx context.Context, userID string, req SavePlaceRequest) (*entities.SavedPlace, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || !req.Coordinate.Valid() {
		return nil, ErrInvalidSavedPlace
	}

	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved places: %w", err)
	}
	for _, p := range existing {
		if isSameLocation(p.Coordinate, req.Coordinate) {
			return nil, ErrAlreadySaved
		}
	}

	place := entities.NewSavedPlace(utils.NewSavedPlaceID(), userID, name, strings.TrimSpace(req.Address), req.Coordinate)
	if err := s.repo.Create(ctx, place); err != nil {
		return nil, fmt.Errorf("save place: %w", err)
	}

	s.logger.Info("place saved", zap.String("user_id", userID), zap.String("id", place.ID), zap.String("type", string(place.Type)))
	return place, nil
}

// Delete removes one of the user's places.
func (s *SavedPlaceService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("place deleted", zap.String("user_id", userID), zap.String("id", id))
	return nil
}

func isSameLocation(a, b entities.Coordinate) bool {
	return math.Abs(a.Latitude-b.Latitude) < duplicateToleranceDegrees &&
		math.Abs(a.Longitude-b.Longitude) < duplicateToleranceDegrees
}
