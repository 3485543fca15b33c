package models

import "time"

// Product is a sellable item shown on a listing page. Available on plans that
// include the products feature.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BusinessID  uint      `gorm:"not null;index" json:"business_id"`
	Name        string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=1,max=150"`
	Description string    `gorm:"type:text" json:"description" validate:"max=2000"`
	PriceCents  int64     `gorm:"not null;default:0" json:"price_cents" validate:"gte=0"`
	ImageURL    string    `gorm:"type:varchar(255);default:''" json:"image_url" validate:"max=255"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
