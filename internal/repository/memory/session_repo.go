package memory

import (
	"context"
	"sync"

	"evcharge/internal/domain/entities"
	"evcharge/internal/repository"
)

var ErrSessionNotFound = repository.ErrSessionNotFound

// SessionRepository keeps map sessions in memory. Callers always receive
// clones, so a snapshot handed to an HTTP response can never observe a later
// update.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.MapSession
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*entities.MapSession),
	}
}

func (r *SessionRepository) Create(ctx context.Context, session *entities.MapSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*entities.MapSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (r *SessionRepository) Update(ctx context.Context, id string, fn func(*entities.MapSession) error) (*entities.MapSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}

	working := session.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.sessions[id] = working
	return working.Clone(), nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *SessionRepository) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
