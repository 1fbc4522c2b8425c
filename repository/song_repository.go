package repository

import (
	"context"
	"errors"
	"fmt"

	"duetfm/model"

	"gorm.io/gorm"
)

// SongRepository defines the interface for song data operations.
type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song) (int64, error)
	GetAllSongs(ctx context.Context) ([]*model.Song, error)
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
	DeleteSong(ctx context.Context, id int64) error
}

type gormSongRepository struct {
	db *gorm.DB
}

// NewSongRepository creates a GORM-backed SongRepository.
func NewSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

// CreateSong adds a new song to the shared library.
func (r *gormSongRepository) CreateSong(ctx context.Context, song *model.Song) (int64, error) {
	if err := r.db.WithContext(ctx).Create(song).Error; err != nil {
		return 0, fmt.Errorf("failed to create song: %w", err)
	}
	return song.ID, nil
}

// GetAllSongs returns the whole library, newest first.
func (r *gormSongRepository) GetAllSongs(ctx context.Context) ([]*model.Song, error) {
	var songs []*model.Song
	if err := r.db.WithContext(ctx).Order("created_at desc, id desc").Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	return songs, nil
}

// GetSongByID retrieves a song by ID.
func (r *gormSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	var song model.Song
	err := r.db.WithContext(ctx).First(&song, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load song %d: %w", id, err)
	}
	return &song, nil
}

// DeleteSong removes a song row. Plays and favorites cascade at the
// schema level.
func (r *gormSongRepository) DeleteSong(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Song{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete song %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
