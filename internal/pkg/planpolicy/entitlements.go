package planpolicy

import (
	"errors"
	"fmt"
	"log"

	"bizdir/internal/pkg/plans"

	"gorm.io/gorm"
)

// ResolveContext computes the effective entitlement state for an owner's
// listing. It first runs expiry reconciliation for exactly that pair, so a
// listing whose paid plan ran out is demoted before its plan is read.
func (s *Service) ResolveContext(ownerID, businessID uint) (*EntitlementContext, error) {
	// Reconciliation is a best-effort repair; its failure never blocks the
	// entitlement read.
	if _, err := s.ReconcileListing(ownerID, businessID); err != nil {
		log.Printf("plan reconciliation failed for listing %d: %v", businessID, err)
	}

	business, err := s.repo.GetOwnedBusiness(ownerID, businessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: listing %d not found for owner %d", ErrNotFound, businessID, ownerID)
		}
		return nil, err
	}

	ctx := &EntitlementContext{
		BusinessID: business.ID,
		OwnerID:    ownerID,
	}

	plan := business.PricingPlan
	if plan == nil || !plan.IsActive {
		// No plan or an inactive plan means the empty entitlement set,
		// whatever the stored feature list says.
		return ctx, nil
	}

	ctx.HasActivePlan = true
	ctx.PlanID = &plan.ID
	ctx.PlanName = plan.Name
	ctx.EnabledFeatures = plans.NormalizeFeatures(plan.FeatureList())
	if plan.GalleryLimit > 0 {
		ctx.GalleryLimit = plan.GalleryLimit
	}
	return ctx, nil
}

// CheckFeatureAccess decides whether the resolved context grants a feature.
// It is pure: no I/O happens here, only the snapshot is consulted. A nil
// return means access is granted; otherwise the error carries the
// user-facing message.
func CheckFeatureAccess(ctx *EntitlementContext, featureKey string) error {
	if ctx == nil || !ctx.HasActivePlan {
		return errors.New("An active pricing plan is required to use this feature.")
	}
	if !plans.HasFeature(ctx.EnabledFeatures, featureKey) {
		return fmt.Errorf("Your current plan does not include %s. Please upgrade your plan to continue.", plans.LabelFor(featureKey))
	}
	return nil
}
