package models

import "time"

const (
	SubscriptionStatusActive  = "active"
	SubscriptionStatusExpired = "expired"
)

// Subscription tracks a profile's coaching subscription window. Successful
// subscription payments extend ExpiresAt; the expiry sweeper flips the status
// once the window has passed.
type Subscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProfileID uint      `gorm:"not null;uniqueIndex" json:"profile_id"`
	Status    string    `gorm:"type:varchar(16);not null;default:'active';index:idx_subscriptions_status_expires,priority:1" json:"status"`
	ExpiresAt time.Time `gorm:"not null;index:idx_subscriptions_status_expires,priority:2" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the subscription still covers the given moment.
func (s *Subscription) IsActive(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.ExpiresAt.After(now)
}
