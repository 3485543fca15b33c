package planpolicy

import (
	"context"
	"time"

	"bizdir/app/models"

	"gorm.io/gorm"
)

// fakeRepository is an in-memory Repository for tests.
type fakeRepository struct {
	policy     models.PlanPolicy
	plans      map[uint]models.PricingPlan
	businesses map[uint]models.Business
	requests   map[uint]models.DowngradeRequest
	nextReqID  uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		policy:     models.PlanPolicy{ID: 1, DecisionMode: models.DowngradeModeAdminApproval},
		plans:      make(map[uint]models.PricingPlan),
		businesses: make(map[uint]models.Business),
		requests:   make(map[uint]models.DowngradeRequest),
	}
}

func (f *fakeRepository) addPlan(p models.PricingPlan) {
	f.plans[p.ID] = p
}

func (f *fakeRepository) addBusiness(b models.Business) {
	f.businesses[b.ID] = b
}

func (f *fakeRepository) GetPolicy() (*models.PlanPolicy, error) {
	policy := f.policy
	return &policy, nil
}

func (f *fakeRepository) SavePolicy(policy *models.PlanPolicy) error {
	f.policy = *policy
	return nil
}

func (f *fakeRepository) GetPlanByID(id uint) (*models.PricingPlan, error) {
	plan, ok := f.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &plan, nil
}

// withPlan mirrors the GORM Preload("PricingPlan") the real repository does.
func (f *fakeRepository) withPlan(b models.Business) models.Business {
	if b.PricingPlanID != nil {
		if plan, ok := f.plans[*b.PricingPlanID]; ok {
			b.PricingPlan = &plan
		}
	}
	return b
}

func (f *fakeRepository) GetOwnedBusiness(ownerID, businessID uint) (*models.Business, error) {
	b, ok := f.businesses[businessID]
	if !ok || b.UserID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	b = f.withPlan(b)
	return &b, nil
}

func (f *fakeRepository) GetBusinessByID(id uint) (*models.Business, error) {
	b, ok := f.businesses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	b = f.withPlan(b)
	return &b, nil
}

func (f *fakeRepository) ListPlannedApproved() ([]models.Business, error) {
	var out []models.Business
	for _, b := range f.businesses {
		if b.PricingPlanID != nil && b.Status == models.BusinessStatusApproved {
			out = append(out, f.withPlan(b))
		}
	}
	return out, nil
}

func (f *fakeRepository) ListPlannedByOwner(ownerID uint) ([]models.Business, error) {
	var out []models.Business
	for _, b := range f.businesses {
		if b.PricingPlanID != nil && b.UserID == ownerID {
			out = append(out, f.withPlan(b))
		}
	}
	return out, nil
}

func (f *fakeRepository) ListPlannedOwnedBusiness(ownerID, businessID uint) ([]models.Business, error) {
	var out []models.Business
	if b, ok := f.businesses[businessID]; ok && b.PricingPlanID != nil && b.UserID == ownerID {
		out = append(out, f.withPlan(b))
	}
	return out, nil
}

func (f *fakeRepository) ListPlannedBySlug(slug string) ([]models.Business, error) {
	var out []models.Business
	for _, b := range f.businesses {
		if b.PricingPlanID != nil && b.Slug == slug {
			out = append(out, f.withPlan(b))
		}
	}
	return out, nil
}

func (f *fakeRepository) DemoteBusinesses(ids []uint, fallbackPlanID uint) (int64, error) {
	var changed int64
	for _, id := range ids {
		b, ok := f.businesses[id]
		if !ok {
			continue
		}
		fallback := fallbackPlanID
		b.PricingPlanID = &fallback
		b.Featured = false
		f.businesses[id] = b
		changed++
	}
	return changed, nil
}

func (f *fakeRepository) SetBusinessPlan(businessID, planID uint) error {
	b, ok := f.businesses[businessID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	id := planID
	b.PricingPlanID = &id
	f.businesses[businessID] = b
	return nil
}

func (f *fakeRepository) CreateDowngradeRequest(req *models.DowngradeRequest) error {
	f.nextReqID++
	req.ID = f.nextReqID
	req.CreatedAt = time.Now()
	f.requests[req.ID] = *req
	return nil
}

func (f *fakeRepository) ListDowngradeRequests(status string) ([]models.DowngradeRequest, error) {
	var out []models.DowngradeRequest
	for _, req := range f.requests {
		if status == "" || req.Status == status {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeRepository) GetDowngradeRequestByID(id uint) (*models.DowngradeRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (f *fakeRepository) SaveDowngradeRequest(req *models.DowngradeRequest) error {
	f.requests[req.ID] = *req
	return nil
}

// fakeBilling is an in-memory BillingProvider for tests.
type fakeBilling struct {
	records   []CheckoutRecord
	subs      map[string]SubscriptionState
	canceled  []string
	listErr   error
	getErr    error
	cancelErr error
	listCalls int
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{subs: make(map[string]SubscriptionState)}
}

func (f *fakeBilling) ListCheckoutRecords(ctx context.Context) ([]CheckoutRecord, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

func (f *fakeBilling) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionState, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return nil, context.Canceled
	}
	return &sub, nil
}

func (f *fakeBilling) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	sub := f.subs[subscriptionID]
	sub.Status = "canceled"
	f.subs[subscriptionID] = sub
	f.canceled = append(f.canceled, subscriptionID)
	return nil
}

func newTestService(repo *fakeRepository, billing *fakeBilling) *Service {
	return NewService(repo, billing)
}

func uintPtr(v uint) *uint { return &v }

func featuresJSON(keys ...string) string {
	p := models.PricingPlan{}
	_ = p.SetFeatureList(keys)
	return p.FeaturesJSON
}
