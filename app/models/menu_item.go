package models

import "time"

// MenuItem is a dish or offer on a listing's menu. Available on plans that
// include the menu_items feature.
type MenuItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	BusinessID  uint      `gorm:"not null;index" json:"business_id"`
	Name        string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=1,max=150"`
	Description string    `gorm:"type:text" json:"description" validate:"max=1000"`
	PriceCents  int64     `gorm:"not null;default:0" json:"price_cents" validate:"gte=0"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
