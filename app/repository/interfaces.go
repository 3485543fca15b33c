package repository

import (
	"bizdir/app/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
	GetWithStats(offset, limit int) ([]UserWithStats, error)
}

// BusinessRepository defines the interface for listing-related database operations
type BusinessRepository interface {
	Create(business *models.Business) error
	GetByID(id uint) (*models.Business, error)
	GetBySlug(slug string) (*models.Business, error)
	GetOwned(ownerID, id uint) (*models.Business, error)
	GetByUserID(userID uint) ([]models.Business, error)
	Update(business *models.Business) error
	Delete(id uint) error
	ListApproved(filter BusinessFilter) ([]models.Business, int64, error)
	ListByStatus(status string, offset, limit int) ([]models.Business, error)
	Count() (int64, error)
	CountByStatus(status string) (int64, error)
	SetStatus(id uint, status string) error
	SetFeatured(id uint, featured bool) error
	CountGalleryImages(businessID uint) (int64, error)
}

// PlanRepository defines the interface for pricing plan operations
type PlanRepository interface {
	Create(plan *models.PricingPlan) error
	GetByID(id uint) (*models.PricingPlan, error)
	GetAll(includeInactive bool) ([]models.PricingPlan, error)
	Update(plan *models.PricingPlan) error
	Delete(id uint) error
	CountBusinessesOnPlan(planID uint) (int64, error)
}

// SettingRepository defines the interface for application settings
type SettingRepository interface {
	Get() (*models.AppSettings, error)
	Save(settings *models.AppSettings) error
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// BusinessFilter narrows the public directory listing query.
type BusinessFilter struct {
	Category string
	City     string
	Search   string
	Offset   int
	Limit    int
}

// UserWithStats represents a user with additional statistics
type UserWithStats struct {
	User          models.User
	BusinessCount int64
	TotalViews    int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	User     UserRepository
	Business BusinessRepository
	Plan     PlanRepository
	Setting  SettingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Business: NewBusinessRepository(db),
		Plan:     NewPlanRepository(db),
		Setting:  NewSettingRepository(db),
	}
}
