package models

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	BillingPeriodMonthly = "monthly"
	BillingPeriodYearly  = "yearly"
)

// PricingPlan is a purchasable plan tier. Plans are created by administrators
// and referenced by listings; a referenced plan is soft-deleted at most.
type PricingPlan struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=2,max=100"`
	Description   string         `gorm:"type:text" json:"description" validate:"max=2000"`
	PriceCents    int64          `gorm:"not null;default:0" json:"price_cents" validate:"gte=0"`
	BillingPeriod string         `gorm:"type:varchar(16);not null;default:'monthly'" json:"billing_period" validate:"oneof=monthly yearly"`
	DurationDays  int            `gorm:"not null;default:0" json:"duration_days" validate:"gte=0"`
	FeaturesJSON  string         `gorm:"type:text" json:"-"`
	GalleryLimit  int            `gorm:"not null;default:0" json:"gallery_limit" validate:"gte=0"`
	StripePriceID string         `gorm:"type:varchar(191);default:''" json:"stripe_price_id"`
	IsActive      bool           `gorm:"default:true;index" json:"is_active"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsFree reports whether this is a free tier. Only free plans are valid
// downgrade targets; paid-to-paid plan changes go through checkout instead.
func (p *PricingPlan) IsFree() bool {
	return p.PriceCents <= 0
}

// FeatureList decodes the stored feature keys. It tolerates both a JSON array
// and a legacy comma-separated string, returning nil for anything unreadable.
func (p *PricingPlan) FeatureList() []string {
	raw := strings.TrimSpace(p.FeaturesJSON)
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	// Legacy rows stored "gallery, menu_items" style values.
	parts := strings.Split(raw, ",")
	list = make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}

// SetFeatureList stores the feature keys as a JSON array.
func (p *PricingPlan) SetFeatureList(features []string) error {
	raw, err := json.Marshal(features)
	if err != nil {
		return err
	}
	p.FeaturesJSON = string(raw)
	return nil
}
