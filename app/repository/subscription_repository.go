package repository

import (
	"errors"
	"time"

	"github.com/OlehKovalenko/CoachPilot/app/models"
	"gorm.io/gorm"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// GetByProfileID retrieves the subscription of a profile
func (r *subscriptionRepository) GetByProfileID(profileID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("profile_id = ?", profileID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Extend pushes the subscription window forward. An expired or missing
// subscription restarts from now; an active one is extended from its current
// expiry so already-paid time is never lost.
func (r *subscriptionRepository) Extend(profileID uint, period time.Duration) (*models.Subscription, error) {
	now := time.Now()

	sub, err := r.GetByProfileID(profileID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		sub = &models.Subscription{
			ProfileID: profileID,
			Status:    models.SubscriptionStatusActive,
			ExpiresAt: now.Add(period),
		}
		if err := r.db.Create(sub).Error; err != nil {
			return nil, err
		}
		return sub, nil
	}

	base := now
	if sub.IsActive(now) {
		base = sub.ExpiresAt
	}
	sub.Status = models.SubscriptionStatusActive
	sub.ExpiresAt = base.Add(period)
	if err := r.db.Save(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// GetExpired lists active subscriptions whose window ended before the cutoff
func (r *subscriptionRepository) GetExpired(before time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("status = ? AND expires_at < ?", models.SubscriptionStatusActive, before).
		Find(&subs).Error
	return subs, err
}

// MarkExpired flips an active subscription to expired
func (r *subscriptionRepository) MarkExpired(id uint) error {
	return r.db.Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, models.SubscriptionStatusActive).
		Update("status", models.SubscriptionStatusExpired).Error
}
