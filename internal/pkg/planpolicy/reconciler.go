package planpolicy

import (
	"errors"

	"bizdir/app/models"
	"bizdir/internal/pkg/plans"

	"gorm.io/gorm"
)

// ReconcileAll demotes every approved listing whose paid plan has run out.
// Returns the number of listings changed.
func (s *Service) ReconcileAll() (int, error) {
	candidates, err := s.repo.ListPlannedApproved()
	if err != nil {
		return 0, err
	}
	return s.reconcile(candidates)
}

// ReconcileOwner reconciles every listing of one owner.
func (s *Service) ReconcileOwner(ownerID uint) (int, error) {
	candidates, err := s.repo.ListPlannedByOwner(ownerID)
	if err != nil {
		return 0, err
	}
	return s.reconcile(candidates)
}

// ReconcileListing reconciles a single owner-scoped listing. Safe to call on
// every read path: it is idempotent and a no-op for healthy listings.
func (s *Service) ReconcileListing(ownerID, businessID uint) (int, error) {
	candidates, err := s.repo.ListPlannedOwnedBusiness(ownerID, businessID)
	if err != nil {
		return 0, err
	}
	return s.reconcile(candidates)
}

// ReconcileSlug reconciles a single listing addressed by its public slug.
func (s *Service) ReconcileSlug(slug string) (int, error) {
	candidates, err := s.repo.ListPlannedBySlug(slug)
	if err != nil {
		return 0, err
	}
	return s.reconcile(candidates)
}

// reconcile is the shared core over a pre-fetched candidate list. A listing
// is expired when its plan is paid, differs from the fallback, and "now" is
// strictly after creation date + plan duration. The expiry clock is anchored
// to the listing's creation date, not the plan assignment date.
func (s *Service) reconcile(candidates []models.Business) (int, error) {
	fallback, err := s.activeFallbackPlan()
	if err != nil {
		return 0, err
	}
	if fallback == nil {
		// No usable fallback configured: reconciliation is a deliberate
		// no-op, not an error.
		return 0, nil
	}

	now := s.now()
	var expired []uint
	for _, b := range candidates {
		plan := b.PricingPlan
		if plan == nil || plan.IsFree() || plan.ID == fallback.ID {
			continue
		}
		expiry := plans.ExpiryDate(b.CreatedAt, plan.BillingPeriod, plan.DurationDays)
		if now.After(expiry) {
			expired = append(expired, b.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	// Best-effort batch: a partial update self-corrects on the next pass.
	changed, err := s.repo.DemoteBusinesses(expired, fallback.ID)
	return int(changed), err
}

// activeFallbackPlan resolves the configured fallback plan, returning nil
// when it is unset, missing or inactive.
func (s *Service) activeFallbackPlan() (*models.PricingPlan, error) {
	policy, err := s.repo.GetPolicy()
	if err != nil {
		return nil, err
	}
	if policy.FallbackPlanID == nil {
		return nil, nil
	}
	plan, err := s.repo.GetPlanByID(*policy.FallbackPlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !plan.IsActive {
		return nil, nil
	}
	return plan, nil
}
