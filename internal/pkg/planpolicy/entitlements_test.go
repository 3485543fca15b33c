package planpolicy

import (
	"testing"
	"time"

	"bizdir/app/models"
	"bizdir/internal/pkg/plans"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveContextNoPlan(t *testing.T) {
	repo := newFakeRepository()
	repo.addBusiness(models.Business{ID: 10, UserID: 1})
	svc := newTestService(repo, newFakeBilling())

	ctx, err := svc.ResolveContext(1, 10)
	require.NoError(t, err)
	assert.False(t, ctx.HasActivePlan)
	assert.Nil(t, ctx.PlanID)
	assert.Empty(t, ctx.EnabledFeatures)
	assert.Zero(t, ctx.GalleryLimit)
}

func TestResolveContextInactivePlan(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{
		ID: 2, Name: "Pro", PriceCents: 1999, IsActive: false,
		FeaturesJSON: featuresJSON(plans.FeatureGallery),
		GalleryLimit: 20,
	})
	repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(2)})
	svc := newTestService(repo, newFakeBilling())

	ctx, err := svc.ResolveContext(1, 10)
	require.NoError(t, err)
	assert.False(t, ctx.HasActivePlan, "inactive plan grants nothing")
	assert.Empty(t, ctx.EnabledFeatures)
}

func TestResolveContextActivePlan(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{
		ID: 2, Name: "Pro", PriceCents: 1999, IsActive: true,
		FeaturesJSON: featuresJSON("Photo Gallery", plans.FeatureProducts, "unknown feature"),
		GalleryLimit: 20,
	})
	repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(2), CreatedAt: time.Now()})
	svc := newTestService(repo, newFakeBilling())

	ctx, err := svc.ResolveContext(1, 10)
	require.NoError(t, err)
	assert.True(t, ctx.HasActivePlan)
	require.NotNil(t, ctx.PlanID)
	assert.Equal(t, uint(2), *ctx.PlanID)
	assert.Equal(t, "Pro", ctx.PlanName)
	assert.Equal(t, 20, ctx.GalleryLimit)

	// The stored list is normalized: aliases resolve, unknowns drop.
	assert.ElementsMatch(t, []string{plans.FeatureGallery, plans.FeatureProducts}, ctx.EnabledFeatures)
}

func TestResolveContextGalleryLimitClamp(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{ID: 2, Name: "Pro", PriceCents: 1999, IsActive: true, GalleryLimit: -5})
	repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(2), CreatedAt: time.Now()})
	svc := newTestService(repo, newFakeBilling())

	ctx, err := svc.ResolveContext(1, 10)
	require.NoError(t, err)
	assert.Zero(t, ctx.GalleryLimit)
}

func TestResolveContextUnknownListing(t *testing.T) {
	repo := newFakeRepository()
	repo.addBusiness(models.Business{ID: 10, UserID: 2})
	svc := newTestService(repo, newFakeBilling())

	_, err := svc.ResolveContext(1, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveContextDemotesExpiredPlanFirst(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{
		ID: 1, Name: "Free", IsActive: true,
		FeaturesJSON: featuresJSON(plans.FeatureBranding),
		GalleryLimit: 3,
	})
	repo.addPlan(models.PricingPlan{
		ID: 2, Name: "Pro", PriceCents: 1999, BillingPeriod: models.BillingPeriodMonthly, IsActive: true,
		FeaturesJSON: featuresJSON(plans.FeatureGallery, plans.FeatureProducts),
		GalleryLimit: 20,
	})
	repo.policy.FallbackPlanID = uintPtr(1)
	repo.addBusiness(models.Business{
		ID:            10,
		UserID:        1,
		Status:        models.BusinessStatusApproved,
		PricingPlanID: uintPtr(2),
		Featured:      true,
		CreatedAt:     time.Now().AddDate(0, 0, -40),
	})
	svc := newTestService(repo, newFakeBilling())

	// Day 40 on a 30-day plan: the read sees the fallback, not the stale Pro.
	ctx, err := svc.ResolveContext(1, 10)
	require.NoError(t, err)
	assert.True(t, ctx.HasActivePlan)
	assert.Equal(t, "Free", ctx.PlanName)
	assert.Equal(t, 3, ctx.GalleryLimit)
	assert.Equal(t, []string{plans.FeatureBranding}, ctx.EnabledFeatures)
	assert.False(t, repo.businesses[10].Featured)
}

func TestCheckFeatureAccess(t *testing.T) {
	err := CheckFeatureAccess(nil, plans.FeatureGallery)
	require.Error(t, err)
	assert.Equal(t, "An active pricing plan is required to use this feature.", err.Error())

	err = CheckFeatureAccess(&EntitlementContext{HasActivePlan: false}, plans.FeatureGallery)
	require.Error(t, err)
	assert.Equal(t, "An active pricing plan is required to use this feature.", err.Error())

	ctx := &EntitlementContext{HasActivePlan: true, EnabledFeatures: []string{plans.FeatureGallery}}
	assert.NoError(t, CheckFeatureAccess(ctx, plans.FeatureGallery))

	err = CheckFeatureAccess(ctx, plans.FeatureProducts)
	require.Error(t, err)
	assert.Equal(t, "Your current plan does not include Product Showcase. Please upgrade your plan to continue.", err.Error())
}
