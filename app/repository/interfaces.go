package repository

import (
	"time"

	"github.com/OlehKovalenko/CoachPilot/app/models"
	"gorm.io/gorm"
)

// PaymentRepository defines the interface for payment-related database operations
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByOrderID(orderID string) (*models.Payment, error)
	// UpdateStatusByOrderID atomically writes the status/error reported by the
	// gateway onto the payment matched by order id and returns the updated
	// record. Returns gorm.ErrRecordNotFound for unknown order ids.
	UpdateStatusByOrderID(orderID, status, errText string) (*models.Payment, error)
	// MarkProcessed flips processed false -> true. The update is conditional
	// (WHERE processed = 0) so concurrent deliveries for the same order cannot
	// both commit the marker; the bool reports whether this call won.
	MarkProcessed(id uint) (bool, error)
	Update(id uint, fields map[string]interface{}) error
	ListByProfile(profileID uint, offset, limit int) ([]models.Payment, error)
	Count() (int64, error)
}

// ProfileRepository defines the interface for profile-related database operations
type ProfileRepository interface {
	Create(profile *models.Profile) error
	GetByID(id uint) (*models.Profile, error)
	GetByTelegramID(telegramID int64) (*models.Profile, error)
	Update(id uint, fields map[string]interface{}) error
	// AdjustCredits applies a single atomic increment to the credit balance
	// and returns the new balance. Concurrent top-ups must not lose updates.
	AdjustCredits(id uint, delta int) (int, error)
}

// SubscriptionRepository defines the interface for subscription operations
type SubscriptionRepository interface {
	GetByProfileID(profileID uint) (*models.Subscription, error)
	// Extend pushes the expiry of the profile's subscription forward by the
	// given duration, creating an active subscription when none exists yet.
	Extend(profileID uint, period time.Duration) (*models.Subscription, error)
	GetExpired(before time.Time) ([]models.Subscription, error)
	MarkExpired(id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Payment      PaymentRepository
	Profile      ProfileRepository
	Subscription SubscriptionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Payment:      NewPaymentRepository(db),
		Profile:      NewProfileRepository(db),
		Subscription: NewSubscriptionRepository(db),
	}
}
