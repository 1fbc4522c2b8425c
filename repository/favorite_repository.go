package repository

import (
	"context"
	"fmt"

	"duetfm/model"

	"gorm.io/gorm"
)

// FavoriteRepository defines the interface for favorite membership rows.
type FavoriteRepository interface {
	CreateFavorite(ctx context.Context, fav *model.Favorite) (int64, error)
	DeleteFavorite(ctx context.Context, songID, profileID int64) error
	GetAllFavorites(ctx context.Context) ([]*model.Favorite, error)
}

type gormFavoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository creates a GORM-backed FavoriteRepository.
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &gormFavoriteRepository{db: db}
}

// CreateFavorite inserts a membership row for (song, profile).
func (r *gormFavoriteRepository) CreateFavorite(ctx context.Context, fav *model.Favorite) (int64, error) {
	if err := r.db.WithContext(ctx).Create(fav).Error; err != nil {
		if isDuplicateEntry(err) {
			return 0, ErrDuplicateFavorite
		}
		return 0, fmt.Errorf("failed to create favorite: %w", err)
	}
	return fav.ID, nil
}

// DeleteFavorite removes the membership row for (song, profile). Deleting a
// row that does not exist is not an error; the toggle is idempotent there.
func (r *gormFavoriteRepository) DeleteFavorite(ctx context.Context, songID, profileID int64) error {
	err := r.db.WithContext(ctx).
		Where("song_id = ? AND user_id = ?", songID, profileID).
		Delete(&model.Favorite{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}

// GetAllFavorites returns every favorite row.
func (r *gormFavoriteRepository) GetAllFavorites(ctx context.Context) ([]*model.Favorite, error) {
	var favorites []*model.Favorite
	if err := r.db.WithContext(ctx).Find(&favorites).Error; err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return favorites, nil
}
