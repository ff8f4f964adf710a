package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"evcharge/internal/domain/entities"
	"evcharge/internal/repository"
)

type savedPlaceRow struct {
	ID        string  `db:"id"`
	UserID    string  `db:"user_id"`
	Name      string  `db:"name"`
	Address   string  `db:"address"`
	Latitude  float64 `db:"latitude"`
	Longitude float64 `db:"longitude"`
	Type      string  `db:"type"`
	CreatedAt int64   `db:"created_at"`
}

func (r savedPlaceRow) toEntity() *entities.SavedPlace {
	return &entities.SavedPlace{
		ID:         r.ID,
		UserID:     r.UserID,
		Name:       r.Name,
		Address:    r.Address,
		Coordinate: entities.NewCoordinate(r.Latitude, r.Longitude),
		Type:       entities.PlaceType(r.Type),
		CreatedAt:  time.Unix(0, r.CreatedAt).UTC(),
	}
}

type SavedPlaceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSavedPlaceRepository(db *DB) *SavedPlaceRepository {
	return &SavedPlaceRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

func (r *SavedPlaceRepository) Create(ctx context.Context, place *entities.SavedPlace) error {
	const query = `
		INSERT INTO saved_places (id, user_id, name, address, latitude, longitude, type, created_at)
		VALUES (:id, :user_id, :name, :address, :latitude, :longitude, :type, :created_at)`

	row := savedPlaceRow{
		ID:        place.ID,
		UserID:    place.UserID,
		Name:      place.Name,
		Address:   place.Address,
		Latitude:  place.Coordinate.Latitude,
		Longitude: place.Coordinate.Longitude,
		Type:      string(place.Type),
		CreatedAt: place.CreatedAt.UnixNano(),
	}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		r.logger.Error("failed to insert saved place", zap.String("id", place.ID), zap.Error(err))
		return fmt.Errorf("insert saved place: %w", err)
	}
	return nil
}

func (r *SavedPlaceRepository) GetByID(ctx context.Context, userID, id string) (*entities.SavedPlace, error) {
	const query = `SELECT * FROM saved_places WHERE id = ? AND user_id = ?`

	var row savedPlaceRow
	err := r.db.GetContext(ctx, &row, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrSavedPlaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get saved place: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SavedPlaceRepository) ListByUser(ctx context.Context, userID string) ([]*entities.SavedPlace, error) {
	const query = `SELECT * FROM saved_places WHERE user_id = ? ORDER BY created_at, rowid`

	var rows []savedPlaceRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		r.logger.Error("failed to list saved places", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("list saved places: %w", err)
	}

	places := make([]*entities.SavedPlace, 0, len(rows))
	for _, row := range rows {
		places = append(places, row.toEntity())
	}
	return places, nil
}

func (r *SavedPlaceRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM saved_places WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete saved place: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete saved place: %w", err)
	}
	if n == 0 {
		return repository.ErrSavedPlaceNotFound
	}
	return nil
}
