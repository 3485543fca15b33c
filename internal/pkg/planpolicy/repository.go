package planpolicy

import (
	"bizdir/app/models"

	"gorm.io/gorm"
)

// Repository provides the DB operations used by the plan policy service.
type Repository interface {
	GetPolicy() (*models.PlanPolicy, error)
	SavePolicy(policy *models.PlanPolicy) error

	GetPlanByID(id uint) (*models.PricingPlan, error)
	GetOwnedBusiness(ownerID, businessID uint) (*models.Business, error)
	GetBusinessByID(id uint) (*models.Business, error)

	// Reconciler candidate queries. All of them return listings with a
	// non-null plan reference and the plan preloaded.
	ListPlannedApproved() ([]models.Business, error)
	ListPlannedByOwner(ownerID uint) ([]models.Business, error)
	ListPlannedOwnedBusiness(ownerID, businessID uint) ([]models.Business, error)
	ListPlannedBySlug(slug string) ([]models.Business, error)

	// DemoteBusinesses moves the given listings to the fallback plan and
	// clears their featured flag in one batch update.
	DemoteBusinesses(ids []uint, fallbackPlanID uint) (int64, error)
	SetBusinessPlan(businessID, planID uint) error

	CreateDowngradeRequest(req *models.DowngradeRequest) error
	ListDowngradeRequests(status string) ([]models.DowngradeRequest, error)
	GetDowngradeRequestByID(id uint) (*models.DowngradeRequest, error)
	SaveDowngradeRequest(req *models.DowngradeRequest) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a plan policy repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetPolicy() (*models.PlanPolicy, error) {
	return models.GetOrCreatePlanPolicy(r.db)
}

func (r *gormRepository) SavePolicy(policy *models.PlanPolicy) error {
	return r.db.Save(policy).Error
}

func (r *gormRepository) GetPlanByID(id uint) (*models.PricingPlan, error) {
	var plan models.PricingPlan
	if err := r.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) GetOwnedBusiness(ownerID, businessID uint) (*models.Business, error) {
	var business models.Business
	err := r.db.Preload("PricingPlan").
		Where("id = ? AND user_id = ?", businessID, ownerID).
		First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *gormRepository) GetBusinessByID(id uint) (*models.Business, error) {
	var business models.Business
	if err := r.db.Preload("PricingPlan").First(&business, id).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *gormRepository) ListPlannedApproved() ([]models.Business, error) {
	var businesses []models.Business
	err := r.db.Preload("PricingPlan").
		Where("pricing_plan_id IS NOT NULL AND status = ?", models.BusinessStatusApproved).
		Find(&businesses).Error
	return businesses, err
}

func (r *gormRepository) ListPlannedByOwner(ownerID uint) ([]models.Business, error) {
	var businesses []models.Business
	err := r.db.Preload("PricingPlan").
		Where("pricing_plan_id IS NOT NULL AND user_id = ?", ownerID).
		Find(&businesses).Error
	return businesses, err
}

func (r *gormRepository) ListPlannedOwnedBusiness(ownerID, businessID uint) ([]models.Business, error) {
	var businesses []models.Business
	err := r.db.Preload("PricingPlan").
		Where("pricing_plan_id IS NOT NULL AND id = ? AND user_id = ?", businessID, ownerID).
		Find(&businesses).Error
	return businesses, err
}

func (r *gormRepository) ListPlannedBySlug(slug string) ([]models.Business, error) {
	var businesses []models.Business
	err := r.db.Preload("PricingPlan").
		Where("pricing_plan_id IS NOT NULL AND slug = ?", slug).
		Find(&businesses).Error
	return businesses, err
}

func (r *gormRepository) DemoteBusinesses(ids []uint, fallbackPlanID uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx := r.db.Model(&models.Business{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"pricing_plan_id": fallbackPlanID,
			"featured":        false,
		})
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) SetBusinessPlan(businessID, planID uint) error {
	return r.db.Model(&models.Business{}).
		Where("id = ?", businessID).
		Update("pricing_plan_id", planID).Error
}

func (r *gormRepository) CreateDowngradeRequest(req *models.DowngradeRequest) error {
	return r.db.Create(req).Error
}

func (r *gormRepository) ListDowngradeRequests(status string) ([]models.DowngradeRequest, error) {
	var requests []models.DowngradeRequest
	q := r.db.Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&requests).Error
	return requests, err
}

func (r *gormRepository) GetDowngradeRequestByID(id uint) (*models.DowngradeRequest, error) {
	var req models.DowngradeRequest
	if err := r.db.First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *gormRepository) SaveDowngradeRequest(req *models.DowngradeRequest) error {
	return r.db.Save(req).Error
}
