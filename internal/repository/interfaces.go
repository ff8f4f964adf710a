package repository

import (
	"context"
	"errors"

	"evcharge/internal/domain/entities"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSavedPlaceNotFound = errors.New("saved place not found")
)

// SavedPlaceRepository persists a user's saved places. ListByUser returns
// places oldest first. Delete only removes a place owned by userID.
type SavedPlaceRepository interface {
	Create(ctx context.Context, place *entities.SavedPlace) error
	GetByID(ctx context.Context, userID, id string) (*entities.SavedPlace, error)
	ListByUser(ctx context.Context, userID string) ([]*entities.SavedPlace, error)
	Delete(ctx context.Context, userID, id string) error
}

// SessionRepository stores map sessions. Update applies fn to the stored
// session atomically and returns a copy of the result; if fn returns an
// error the session is left unchanged.
type SessionRepository interface {
	Create(ctx context.Context, session *entities.MapSession) error
	GetByID(ctx context.Context, id string) (*entities.MapSession, error)
	Update(ctx context.Context, id string, fn func(*entities.MapSession) error) (*entities.MapSession, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) int
}
