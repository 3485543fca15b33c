package planpolicy

import (
	"context"
	"errors"
	"testing"

	"bizdir/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func downgradeFixture() (*fakeRepository, *fakeBilling, *Service) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
	repo.addPlan(models.PricingPlan{ID: 2, Name: "Pro", PriceCents: 1999, IsActive: true})
	repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(2)})
	billing := newFakeBilling()
	return repo, billing, newTestService(repo, billing)
}

func TestSelectSubscriptionIDsPrefersListingTag(t *testing.T) {
	records := []CheckoutRecord{
		{SubscriptionID: "sub_plan", Mode: CheckoutRecordModeSubscription, OwnerID: 1, PlanID: 2},
		{SubscriptionID: "sub_listing", Mode: CheckoutRecordModeSubscription, OwnerID: 1, BusinessID: 10},
	}
	ids := selectSubscriptionIDs(records, 1, "owner@example.com", 10, uintPtr(2))
	assert.Equal(t, []string{"sub_listing"}, ids)
}

func TestSelectSubscriptionIDsPlanFallback(t *testing.T) {
	records := []CheckoutRecord{
		{SubscriptionID: "sub_plan", Mode: CheckoutRecordModeSubscription, OwnerID: 1, PlanID: 2},
		{SubscriptionID: "sub_other_plan", Mode: CheckoutRecordModeSubscription, OwnerID: 1, PlanID: 5},
	}
	ids := selectSubscriptionIDs(records, 1, "", 10, uintPtr(2))
	assert.Equal(t, []string{"sub_plan"}, ids)

	// Without a current plan there is nothing to fall back to.
	ids = selectSubscriptionIDs(records, 1, "", 10, nil)
	assert.Empty(t, ids)
}

func TestSelectSubscriptionIDsOwnerMatching(t *testing.T) {
	records := []CheckoutRecord{
		// Owner-id metadata match.
		{SubscriptionID: "sub_by_id", Mode: CheckoutRecordModeSubscription, OwnerID: 1, BusinessID: 10},
		// Legacy session without metadata, matched by email, case-insensitive.
		{SubscriptionID: "sub_by_email", Mode: CheckoutRecordModeSubscription, CustomerEmail: "Owner@Example.COM", BusinessID: 10},
		// Someone else's session.
		{SubscriptionID: "sub_foreign", Mode: CheckoutRecordModeSubscription, OwnerID: 9, BusinessID: 10},
		// One-time payment, never a cancellation target.
		{SubscriptionID: "sub_payment", Mode: "payment", OwnerID: 1, BusinessID: 10},
		// Subscription mode but no subscription reference.
		{SessionID: "cs_empty", Mode: CheckoutRecordModeSubscription, OwnerID: 1, BusinessID: 10},
	}
	ids := selectSubscriptionIDs(records, 1, "owner@example.com", 10, nil)
	assert.Equal(t, []string{"sub_by_id", "sub_by_email"}, ids)
}

func TestSelectSubscriptionIDsDeduplicates(t *testing.T) {
	records := []CheckoutRecord{
		{SubscriptionID: "sub_a", Mode: CheckoutRecordModeSubscription, OwnerID: 1, BusinessID: 10},
		{SubscriptionID: "sub_a", Mode: CheckoutRecordModeSubscription, OwnerID: 1, BusinessID: 10},
		{SubscriptionID: "sub_b", Mode: CheckoutRecordModeSubscription, OwnerID: 1, BusinessID: 10},
	}
	ids := selectSubscriptionIDs(records, 1, "", 10, nil)
	assert.Equal(t, []string{"sub_a", "sub_b"}, ids)
}

func TestExecutePlanDowngradeSkipsCanceled(t *testing.T) {
	repo, billing, svc := downgradeFixture()
	billing.records = []CheckoutRecord{
		{SubscriptionID: "sub_a", Mode: CheckoutRecordModeSubscription, OwnerID: 1, BusinessID: 10},
		{SubscriptionID: "sub_b", Mode: CheckoutRecordModeSubscription, OwnerID: 1, BusinessID: 10},
	}
	billing.subs["sub_a"] = SubscriptionState{ID: "sub_a", Status: "canceled"}
	billing.subs["sub_b"] = SubscriptionState{ID: "sub_b", Status: "active"}

	canceled, err := svc.ExecutePlanDowngrade(context.Background(), 1, "owner@example.com", 10, uintPtr(2), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_b"}, canceled)
	assert.Equal(t, uint(1), *repo.businesses[10].PricingPlanID)
}

func TestExecutePlanDowngradeNoSubscriptions(t *testing.T) {
	repo, _, svc := downgradeFixture()

	// No checkout history at all: the plan pointer still moves.
	canceled, err := svc.ExecutePlanDowngrade(context.Background(), 1, "owner@example.com", 10, uintPtr(2), 1)
	require.NoError(t, err)
	assert.Empty(t, canceled)
	assert.Equal(t, uint(1), *repo.businesses[10].PricingPlanID)
}

func TestExecutePlanDowngradeProviderErrorAborts(t *testing.T) {
	providerErr := errors.New("provider unavailable")

	t.Run("list fails", func(t *testing.T) {
		repo, billing, svc := downgradeFixture()
		billing.listErr = providerErr

		_, err := svc.ExecutePlanDowngrade(context.Background(), 1, "owner@example.com", 10, uintPtr(2), 1)
		assert.ErrorIs(t, err, providerErr)
		assert.Equal(t, uint(2), *repo.businesses[10].PricingPlanID)
	})

	t.Run("cancel fails", func(t *testing.T) {
		repo, billing, svc := downgradeFixture()
		billing.records = []CheckoutRecord{
			{SubscriptionID: "sub_a", Mode: CheckoutRecordModeSubscription, OwnerID: 1, BusinessID: 10},
		}
		billing.subs["sub_a"] = SubscriptionState{ID: "sub_a", Status: "active"}
		billing.cancelErr = providerErr

		_, err := svc.ExecutePlanDowngrade(context.Background(), 1, "owner@example.com", 10, uintPtr(2), 1)
		assert.ErrorIs(t, err, providerErr)
		assert.Equal(t, uint(2), *repo.businesses[10].PricingPlanID, "plan pointer untouched on provider failure")
	})
}
