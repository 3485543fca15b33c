package models

import "time"

// ServiceOffering is a bookable service shown on a listing page. Available on
// plans that include the services feature.
type ServiceOffering struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	BusinessID      uint      `gorm:"not null;index" json:"business_id"`
	Name            string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=1,max=150"`
	Description     string    `gorm:"type:text" json:"description" validate:"max=2000"`
	PriceCents      int64     `gorm:"not null;default:0" json:"price_cents" validate:"gte=0"`
	DurationMinutes int       `gorm:"not null;default:0" json:"duration_minutes" validate:"gte=0"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
