package memory

import (
	"context"
	"sort"
	"sync"

	"evcharge/internal/domain/entities"
	"evcharge/internal/repository"
)

var ErrSavedPlaceNotFound = repository.ErrSavedPlaceNotFound

// SavedPlaceRepository is the in-memory saved-place store, used when no
// database path is configured and in tests.
type SavedPlaceRepository struct {
	mu     sync.RWMutex
	places map[string]*entities.SavedPlace
	byUser map[string][]string
}

func NewSavedPlaceRepository() *SavedPlaceRepository {
	return &SavedPlaceRepository{
		places: make(map[string]*entities.SavedPlace),
		byUser: make(map[string][]string),
	}
}

func (r *SavedPlaceRepository) Create(ctx context.Context, place *entities.SavedPlace) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *place
	r.places[place.ID] = &stored
	r.byUser[place.UserID] = append(r.byUser[place.UserID], place.ID)
	return nil
}

func (r *SavedPlaceRepository) GetByID(ctx context.Context, userID, id string) (*entities.SavedPlace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	place, exists := r.places[id]
	if !exists || place.UserID != userID {
		return nil, ErrSavedPlaceNotFound
	}
	out := *place
	return &out, nil
}

func (r *SavedPlaceRepository) ListByUser(ctx context.Context, userID string) ([]*entities.SavedPlace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	result := make([]*entities.SavedPlace, 0, len(ids))
	for _, id := range ids {
		if place, exists := r.places[id]; exists {
			out := *place
			result = append(result, &out)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *SavedPlaceRepository) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	place, exists := r.places[id]
	if !exists || place.UserID != userID {
		return ErrSavedPlaceNotFound
	}
	delete(r.places, id)

	ids := r.byUser[userID]
	for i, pid := range ids {
		if pid == id {
			r.byUser[userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
