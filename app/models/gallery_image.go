package models

import "time"

// GalleryImage is one image slot in a listing's gallery. The number of rows a
// listing may hold is capped by its plan's gallery limit; the image bytes live
// behind the URL, upload handling is outside this service.
type GalleryImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BusinessID uint      `gorm:"not null;index" json:"business_id"`
	URL        string    `gorm:"type:varchar(255);not null" json:"url" validate:"required,url,max=255"`
	Caption    string    `gorm:"type:varchar(255);default:''" json:"caption" validate:"max=255"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
