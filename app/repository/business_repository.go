package repository

import (
	"strings"

	"bizdir/app/models"

	"gorm.io/gorm"
)

// businessRepository implements the BusinessRepository interface
type businessRepository struct {
	db *gorm.DB
}

// NewBusinessRepository creates a new business repository instance
func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

// Create creates a new listing in the database
func (r *businessRepository) Create(business *models.Business) error {
	return r.db.Create(business).Error
}

// GetByID retrieves a listing with its plan by ID
func (r *businessRepository) GetByID(id uint) (*models.Business, error) {
	var business models.Business
	err := r.db.Preload("PricingPlan").First(&business, id).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

// GetBySlug retrieves a listing with its plan and sub-entities by public slug
func (r *businessRepository) GetBySlug(slug string) (*models.Business, error) {
	var business models.Business
	err := r.db.Preload("PricingPlan").
		Preload("MenuItems").
		Preload("Products").
		Preload("Services").
		Preload("GalleryImages").
		Where("slug = ?", slug).
		First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

// GetOwned retrieves a listing only when it belongs to the given owner
func (r *businessRepository) GetOwned(ownerID, id uint) (*models.Business, error) {
	var business models.Business
	err := r.db.Preload("PricingPlan").
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

// GetByUserID retrieves all listings of one owner, newest first
func (r *businessRepository) GetByUserID(userID uint) ([]models.Business, error) {
	var businesses []models.Business
	err := r.db.Preload("PricingPlan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&businesses).Error
	return businesses, err
}

// Update updates an existing listing in the database
func (r *businessRepository) Update(business *models.Business) error {
	return r.db.Save(business).Error
}

// Delete soft deletes a listing by its ID
func (r *businessRepository) Delete(id uint) error {
	return r.db.Delete(&models.Business{}, id).Error
}

// ListApproved returns the public directory page: approved listings with
// optional category/city/search filters, featured listings first.
func (r *businessRepository) ListApproved(filter BusinessFilter) ([]models.Business, int64, error) {
	query := r.db.Model(&models.Business{}).Where("status = ?", models.BusinessStatusApproved)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var businesses []models.Business
	err := query.Preload("PricingPlan").
		Order("featured DESC, created_at DESC").
		Offset(filter.Offset).
		Limit(limit).
		Find(&businesses).Error
	return businesses, total, err
}

// ListByStatus returns listings in one moderation state, oldest first so the
// admin queue is worked in submission order.
func (r *businessRepository) ListByStatus(status string, offset, limit int) ([]models.Business, error) {
	var businesses []models.Business
	err := r.db.Preload("PricingPlan").
		Where("status = ?", status).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&businesses).Error
	return businesses, err
}

// Count returns the total number of listings
func (r *businessRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Business{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of listings in one moderation state
func (r *businessRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Business{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// SetStatus updates the moderation state of a listing
func (r *businessRepository) SetStatus(id uint, status string) error {
	return r.db.Model(&models.Business{}).Where("id = ?", id).Update("status", status).Error
}

// SetFeatured toggles the featured flag of a listing
func (r *businessRepository) SetFeatured(id uint, featured bool) error {
	return r.db.Model(&models.Business{}).Where("id = ?", id).Update("featured", featured).Error
}

// CountGalleryImages counts the gallery images attached to a listing
func (r *businessRepository) CountGalleryImages(businessID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.GalleryImage{}).Where("business_id = ?", businessID).Count(&count).Error
	return count, err
}
