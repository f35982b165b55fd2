package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailure = "failure"
	PaymentStatusClosed  = "closed"
)

const (
	PaymentTypeCredits      = "credits"
	PaymentTypeSubscription = "subscription"
)

// Payment mirrors one checkout initiated with the gateway. OrderID is the
// idempotency key: webhook deliveries are matched against it, and Processed
// flips false -> true at most once per payment.
type Payment struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_order_id" json:"order_id" validate:"required"`
	ProfileID   uint            `gorm:"not null;index" json:"profile_id" validate:"required"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'UAH'" json:"currency" validate:"oneof=UAH USD EUR"`
	PaymentType string          `gorm:"type:varchar(20);not null;default:'credits';index" json:"payment_type" validate:"oneof=credits subscription"`
	Status      string          `gorm:"type:varchar(16);not null;default:'pending';index" json:"status" validate:"oneof=pending success failure closed"`
	Error       string          `gorm:"type:text" json:"error"`
	Processed   bool            `gorm:"not null;default:false;index" json:"processed"`
	CreatedAt   time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Payment) Validate() error {
	v := validator.New()

	return v.Struct(p)
}

// IsKnownPaymentStatus reports whether the gateway sent a status this core models.
func IsKnownPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailure, PaymentStatusClosed:
		return true
	default:
		return false
	}
}
