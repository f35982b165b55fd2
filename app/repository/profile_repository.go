package repository

import (
	"github.com/OlehKovalenko/CoachPilot/app/models"
	"gorm.io/gorm"
)

// profileRepository implements the ProfileRepository interface
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository instance
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create creates a new profile in the database
func (r *profileRepository) Create(profile *models.Profile) error {
	return r.db.Create(profile).Error
}

// GetByID retrieves a profile by its ID
func (r *profileRepository) GetByID(id uint) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.First(&profile, id).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByTelegramID retrieves a profile by its messenger identity
func (r *profileRepository) GetByTelegramID(telegramID int64) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.Where("telegram_id = ?", telegramID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Update applies arbitrary field updates to a profile
func (r *profileRepository) Update(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Profile{}).Where("id = ?", id).Updates(fields).Error
}

// AdjustCredits increments the credit balance in a single UPDATE so concurrent
// top-ups for the same profile cannot lose updates.
func (r *profileRepository) AdjustCredits(id uint, delta int) (int, error) {
	tx := r.db.Model(&models.Profile{}).
		Where("id = ?", id).
		Update("credits", gorm.Expr("credits + ?", delta))
	if tx.Error != nil {
		return 0, tx.Error
	}
	if tx.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var profile models.Profile
	if err := r.db.Select("credits").First(&profile, id).Error; err != nil {
		return 0, err
	}
	return profile.Credits, nil
}
