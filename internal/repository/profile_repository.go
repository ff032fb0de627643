package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
}

// profileRepository implements ProfileRepository using GORM
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new ProfileRepository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Upsert creates a profile or updates the stored copy with the same ID
func (r *profileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		return ErrInvalidInput
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "email", "role", "updated_at"}),
	}).Create(profile)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert profile: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a profile by its ID
func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&profile)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile by ID: %w", result.Error)
	}
	return &profile, nil
}

// List retrieves all profiles ordered by name
func (r *profileRepository) List(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	result := r.db.WithContext(ctx).Order("full_name ASC").Order("id ASC").Find(&profiles)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", result.Error)
	}
	return profiles, nil
}
