package models

import "time"

// PaymentStat holds per-day reconciliation counters. Rows are written by the
// metrics flush, not by request handlers.
type PaymentStat struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Date           time.Time `gorm:"type:date;not null;uniqueIndex:ux_payment_stats_date_status,priority:1" json:"date"`
	Status         string    `gorm:"type:varchar(16);not null;uniqueIndex:ux_payment_stats_date_status,priority:2" json:"status"`
	Count          int64     `gorm:"not null;default:0" json:"count"`
	CreditsGranted int64     `gorm:"not null;default:0" json:"credits_granted"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
