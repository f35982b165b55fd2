package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	LanguageUkrainian = "uk"
	LanguageEnglish   = "en"
)

// Profile is a coaching client account. Credits are mutated only through the
// atomic adjustment in ProfileRepository, never by direct field writes.
type Profile struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TelegramID int64          `gorm:"not null;uniqueIndex" json:"telegram_id" validate:"required"`
	Name       string         `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Email      string         `gorm:"type:varchar(200);index" json:"email" validate:"omitempty,email,max=200"`
	Language   string         `gorm:"type:varchar(5);not null;default:'uk'" json:"language" validate:"oneof=uk en"`
	Credits    int            `gorm:"not null;default:0" json:"credits" validate:"min=0"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Profile) Validate() error {
	v := validator.New()

	return v.Struct(p)
}
