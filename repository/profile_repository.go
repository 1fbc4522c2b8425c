package repository

import (
	"context"
	"errors"
	"fmt"

	"duetfm/model"

	"gorm.io/gorm"
)

// ProfileRepository defines the interface for profile data operations.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *model.Profile) (int64, error)
	GetAllProfiles(ctx context.Context) ([]*model.Profile, error)
	GetProfileByID(ctx context.Context, id int64) (*model.Profile, error)
	GetProfileByUserID(ctx context.Context, userID int64) (*model.Profile, error)
}

type gormProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a GORM-backed ProfileRepository.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &gormProfileRepository{db: db}
}

// CreateProfile adds the profile that accompanies a new account.
func (r *gormProfileRepository) CreateProfile(ctx context.Context, profile *model.Profile) (int64, error) {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if isDuplicateEntry(err) {
			return 0, ErrDuplicateUser
		}
		return 0, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile.ID, nil
}

// GetAllProfiles returns every profile. A working instance holds at most two.
func (r *gormProfileRepository) GetAllProfiles(ctx context.Context) ([]*model.Profile, error) {
	var profiles []*model.Profile
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// GetProfileByID retrieves a profile by ID.
func (r *gormProfileRepository) GetProfileByID(ctx context.Context, id int64) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).First(&profile, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %d: %w", id, err)
	}
	return &profile, nil
}

// GetProfileByUserID retrieves the profile belonging to an account.
func (r *gormProfileRepository) GetProfileByUserID(ctx context.Context, userID int64) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for user %d: %w", userID, err)
	}
	return &profile, nil
}
