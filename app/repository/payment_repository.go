package repository

import (
	"github.com/OlehKovalenko/CoachPilot/app/models"
	"gorm.io/gorm"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment in the database
func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetByID retrieves a payment by its ID
func (r *paymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByOrderID retrieves a payment by its order id (the idempotency key)
func (r *paymentRepository) GetByOrderID(orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("order_id = ?", orderID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdateStatusByOrderID writes the gateway-reported status onto the matching
// payment and returns the updated record.
func (r *paymentRepository) UpdateStatusByOrderID(orderID, status, errText string) (*models.Payment, error) {
	tx := r.db.Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status": status,
			"error":  errText,
		})
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		// Either the order id is unknown or the row already carries these
		// values; distinguish by reloading.
		var existing models.Payment
		if err := r.db.Where("order_id = ?", orderID).First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}

	var payment models.Payment
	if err := r.db.Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkProcessed commits the idempotency marker with compare-and-set semantics.
func (r *paymentRepository) MarkProcessed(id uint) (bool, error) {
	tx := r.db.Model(&models.Payment{}).
		Where("id = ? AND processed = ?", id, false).
		Update("processed", true)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Update applies arbitrary field updates to a payment
func (r *paymentRepository) Update(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Payment{}).Where("id = ?", id).Updates(fields).Error
}

// ListByProfile returns the payment history of a profile, newest first
func (r *paymentRepository) ListByProfile(profileID uint, offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&payments).Error
	return payments, err
}

// Count returns the total number of payments
func (r *paymentRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).Count(&count).Error
	return count, err
}
