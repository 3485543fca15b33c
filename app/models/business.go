package models

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const (
	BusinessStatusPending  = "pending"
	BusinessStatusApproved = "approved"
	BusinessStatusRejected = "rejected"
)

// Business is a directory listing owned by a user. The effective feature set
// is always derived from the referenced pricing plan, never cached on the row.
type Business struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UUID              string         `gorm:"type:varchar(36);not null;uniqueIndex" json:"uuid"`
	UserID            uint           `gorm:"not null;index" json:"user_id"`
	User              *User          `gorm:"foreignKey:UserID" json:"-"`
	PricingPlanID     *uint          `gorm:"index" json:"pricing_plan_id,omitempty"`
	PricingPlan       *PricingPlan   `gorm:"foreignKey:PricingPlanID" json:"pricing_plan,omitempty"`
	Name              string         `gorm:"type:varchar(200);not null" json:"name" validate:"required,min=2,max=200"`
	Slug              string         `gorm:"type:varchar(220);not null;uniqueIndex" json:"slug"`
	Description       string         `gorm:"type:text" json:"description" validate:"max=5000"`
	Category          string         `gorm:"type:varchar(100);index" json:"category" validate:"max=100"`
	City              string         `gorm:"type:varchar(100);index" json:"city" validate:"max=100"`
	Address           string         `gorm:"type:varchar(255)" json:"address" validate:"max=255"`
	Phone             string         `gorm:"type:varchar(50)" json:"phone" validate:"max=50"`
	Website           string         `gorm:"type:varchar(255)" json:"website" validate:"omitempty,url,max=255"`
	LogoURL           string         `gorm:"type:varchar(255)" json:"logo_url" validate:"max=255"`
	CoverURL          string         `gorm:"type:varchar(255)" json:"cover_url" validate:"max=255"`
	Status            string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status" validate:"oneof=pending approved rejected"`
	Featured          bool           `gorm:"default:false;index" json:"featured"`
	ViewCount         uint64         `gorm:"default:0" json:"view_count"`
	LikeCount         uint64         `gorm:"default:0" json:"like_count"`
	ContactClickCount uint64         `gorm:"default:0" json:"contact_click_count"`
	ContactJSON       string         `gorm:"type:longtext" json:"-"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	MenuItems     []MenuItem        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Products      []Product         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Services      []ServiceOffering `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	GalleryImages []GalleryImage    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// BusinessContact is the free-form contact blob stored on the listing.
type BusinessContact struct {
	Email     string `json:"email,omitempty"`
	WhatsApp  string `json:"whatsapp,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// BeforeCreate fills in the public UUID and slug when the caller did not.
func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.UUID == "" {
		b.UUID = uuid.New().String()
	}
	if b.Slug == "" {
		b.Slug = MakeBusinessSlug(b.Name, b.UUID)
	}
	return nil
}

// MakeBusinessSlug builds a URL slug from the listing name. The first UUID
// segment is appended so two "Joe's Pizza" listings never collide.
func MakeBusinessSlug(name, id string) string {
	s := slug.Make(name)
	if s == "" {
		s = "listing"
	}
	if len(id) >= 8 {
		s += "-" + id[:8]
	}
	return s
}

// Contact parses the contact blob. Malformed or empty JSON yields the zero
// value rather than an error.
func (b *Business) Contact() BusinessContact {
	var c BusinessContact
	if b.ContactJSON != "" {
		_ = json.Unmarshal([]byte(b.ContactJSON), &c)
	}
	return c
}

// SetContact serializes the contact blob back onto the row.
func (b *Business) SetContact(c BusinessContact) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	b.ContactJSON = string(raw)
	return nil
}

// Validate checks the listing fields against their constraints.
func (b *Business) Validate() error {
	v := validator.New()

	return v.Struct(b)
}

// IsApproved reports whether the listing is publicly visible.
func (b *Business) IsApproved() bool {
	return b.Status == BusinessStatusApproved
}
