package repository

import (
	"bizdir/app/models"

	"gorm.io/gorm"
)

// planRepository implements the PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// Create creates a new pricing plan in the database
func (r *planRepository) Create(plan *models.PricingPlan) error {
	return r.db.Create(plan).Error
}

// GetByID retrieves a pricing plan by its ID
func (r *planRepository) GetByID(id uint) (*models.PricingPlan, error) {
	var plan models.PricingPlan
	err := r.db.First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetAll returns all plans ordered by price, optionally including inactive ones
func (r *planRepository) GetAll(includeInactive bool) ([]models.PricingPlan, error) {
	var plans []models.PricingPlan
	query := r.db.Order("price_cents ASC, id ASC")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	err := query.Find(&plans).Error
	return plans, err
}

// Update updates an existing pricing plan
func (r *planRepository) Update(plan *models.PricingPlan) error {
	return r.db.Save(plan).Error
}

// Delete soft deletes a pricing plan by its ID
func (r *planRepository) Delete(id uint) error {
	return r.db.Delete(&models.PricingPlan{}, id).Error
}

// CountBusinessesOnPlan counts the listings currently pointing at a plan
func (r *planRepository) CountBusinessesOnPlan(planID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Business{}).Where("pricing_plan_id = ?", planID).Count(&count).Error
	return count, err
}
