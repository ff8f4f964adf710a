package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"evcharge/internal/domain/entities"
)

type fakePlaceProvider struct {
	predictions []entities.Prediction
	place       *entities.Place
	err         error
}

func (f *fakePlaceProvider) Autocomplete(ctx context.Context, input string, near *entities.Coordinate) ([]entities.Prediction, error) {
	return f.predictions, f.err
}

func (f *fakePlaceProvider) PlaceDetails(ctx context.Context, placeID string) (*entities.Place, error) {
	return f.place, f.err
}

func TestPlaceSearchService_AutocompleteSwallowsErrors(t *testing.T) {
	svc := NewPlaceSearchService(&fakePlaceProvider{err: errors.New("quota")}, zap.NewNop())

	preds := svc.Autocomplete(context.Background(), "market", nil)
	assert.NotNil(t, preds)
	assert.Empty(t, preds)

	_, err := svc.Details(context.Background(), "p1")
	assert.Error(t, err)
}

func TestPlaceSearchService_PassesResultsThrough(t *testing.T) {
	place := &entities.Place{PlaceID: "p1", Name: "Ferry Building", Coordinate: entities.NewCoordinate(37.7955, -122.3937)}
	svc := NewPlaceSearchService(&fakePlaceProvider{
		predictions: []entities.Prediction{{PlaceID: "p1", Description: "Ferry Building"}},
		place:       place,
	}, zap.NewNop())

	assert.Len(t, svc.Autocomplete(context.Background(), "ferry", nil), 1)
	got, err := svc.Details(context.Background(), "p1")
	assert.NoError(t, err)
	assert.Equal(t, place, got)
}
