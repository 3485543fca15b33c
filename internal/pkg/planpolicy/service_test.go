package planpolicy

import (
	"context"
	"testing"
	"time"

	"bizdir/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDecisionMode(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, newFakeBilling())

	require.NoError(t, svc.SetDecisionMode("auto"))
	mode, err := svc.DecisionMode()
	require.NoError(t, err)
	assert.Equal(t, models.DowngradeModeAuto, mode)

	require.NoError(t, svc.SetDecisionMode(" Admin_Approval "))
	mode, err = svc.DecisionMode()
	require.NoError(t, err)
	assert.Equal(t, models.DowngradeModeAdminApproval, mode)

	err = svc.SetDecisionMode("manual")
	assert.Error(t, err)
}

func TestSetFallbackPlanID(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
	svc := newTestService(repo, newFakeBilling())

	require.NoError(t, svc.SetFallbackPlanID(uintPtr(1)))
	id, err := svc.FallbackPlanID()
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, uint(1), *id)

	err = svc.SetFallbackPlanID(uintPtr(42))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.SetFallbackPlanID(nil))
	id, err = svc.FallbackPlanID()
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestCreateDowngradeRequest(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
	repo.addPlan(models.PricingPlan{ID: 2, Name: "Pro", PriceCents: 1999, IsActive: true})
	repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(2)})
	svc := newTestService(repo, newFakeBilling())

	req, err := svc.CreateDowngradeRequest(1, "owner@example.com", 10, 1)
	require.NoError(t, err)
	assert.Equal(t, models.DowngradeStatusPending, req.Status)
	assert.Equal(t, "owner@example.com", req.UserEmail)
	assert.Equal(t, uint(1), req.TargetPlanID)

	// Listing owned by someone else.
	_, err = svc.CreateDowngradeRequest(2, "x@example.com", 10, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	// Unknown target plan.
	_, err = svc.CreateDowngradeRequest(1, "owner@example.com", 10, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	// Paid plans are never a downgrade target.
	_, err = svc.CreateDowngradeRequest(1, "owner@example.com", 10, 2)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestListDowngradeRequestsStatusFilter(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
	repo.addBusiness(models.Business{ID: 10, UserID: 1})
	svc := newTestService(repo, newFakeBilling())

	_, err := svc.CreateDowngradeRequest(1, "a@example.com", 10, 1)
	require.NoError(t, err)

	pending, err := svc.ListDowngradeRequests(models.DowngradeStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	approved, err := svc.ListDowngradeRequests(models.DowngradeStatusApproved)
	require.NoError(t, err)
	assert.Empty(t, approved)

	_, err = svc.ListDowngradeRequests("bogus")
	assert.Error(t, err)
}

func TestDecideDowngradeReject(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
	repo.addPlan(models.PricingPlan{ID: 2, Name: "Pro", PriceCents: 1999, IsActive: true})
	repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(2)})
	billing := newFakeBilling()
	svc := newTestService(repo, billing)

	req, err := svc.CreateDowngradeRequest(1, "owner@example.com", 10, 1)
	require.NoError(t, err)

	decided, err := svc.DecideDowngradeRequest(context.Background(), DecideDowngradeInput{
		RequestID:   req.ID,
		Decision:    DecisionReject,
		DeciderID:   7,
		DeciderName: "admin@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DowngradeStatusRejected, decided.Status)
	assert.Equal(t, "admin@example.com", decided.DeciderName)
	require.NotNil(t, decided.DecidedAt)
	require.NotNil(t, decided.DeciderID)
	assert.Equal(t, uint(7), *decided.DeciderID)

	// Rejection never touches billing or the plan pointer.
	assert.Zero(t, billing.listCalls)
	assert.Equal(t, uint(2), *repo.businesses[10].PricingPlanID)
}

func TestDecideDowngradeOnlyOnce(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
	repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(1)})
	svc := newTestService(repo, newFakeBilling())

	req, err := svc.CreateDowngradeRequest(1, "owner@example.com", 10, 1)
	require.NoError(t, err)

	in := DecideDowngradeInput{RequestID: req.ID, Decision: DecisionApprove, DeciderName: "admin@example.com"}
	_, err = svc.DecideDowngradeRequest(context.Background(), in)
	require.NoError(t, err)

	// A second decision, approve or reject, is a conflict.
	_, err = svc.DecideDowngradeRequest(context.Background(), in)
	assert.ErrorIs(t, err, ErrConflict)

	in.Decision = DecisionReject
	_, err = svc.DecideDowngradeRequest(context.Background(), in)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDecideDowngradeApproveConflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("ownership changed", func(t *testing.T) {
		repo := newFakeRepository()
		repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
		repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(1)})
		svc := newTestService(repo, newFakeBilling())

		req, err := svc.CreateDowngradeRequest(1, "owner@example.com", 10, 1)
		require.NoError(t, err)

		b := repo.businesses[10]
		b.UserID = 5
		repo.businesses[10] = b

		_, err = svc.DecideDowngradeRequest(ctx, DecideDowngradeInput{RequestID: req.ID, Decision: DecisionApprove})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("target plan deactivated", func(t *testing.T) {
		repo := newFakeRepository()
		repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
		repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(1)})
		svc := newTestService(repo, newFakeBilling())

		req, err := svc.CreateDowngradeRequest(1, "owner@example.com", 10, 1)
		require.NoError(t, err)

		p := repo.plans[1]
		p.IsActive = false
		repo.plans[1] = p

		_, err = svc.DecideDowngradeRequest(ctx, DecideDowngradeInput{RequestID: req.ID, Decision: DecisionApprove})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("listing deleted", func(t *testing.T) {
		repo := newFakeRepository()
		repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
		repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(1)})
		svc := newTestService(repo, newFakeBilling())

		req, err := svc.CreateDowngradeRequest(1, "owner@example.com", 10, 1)
		require.NoError(t, err)

		delete(repo.businesses, 10)

		_, err = svc.DecideDowngradeRequest(ctx, DecideDowngradeInput{RequestID: req.ID, Decision: DecisionApprove})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("target plan turned paid", func(t *testing.T) {
		repo := newFakeRepository()
		repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
		repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(1)})
		svc := newTestService(repo, newFakeBilling())

		req, err := svc.CreateDowngradeRequest(1, "owner@example.com", 10, 1)
		require.NoError(t, err)

		p := repo.plans[1]
		p.PriceCents = 999
		repo.plans[1] = p

		_, err = svc.DecideDowngradeRequest(ctx, DecideDowngradeInput{RequestID: req.ID, Decision: DecisionApprove})
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestDecideDowngradeApproveAlreadyOnTarget(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
	repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(1)})
	billing := newFakeBilling()
	svc := newTestService(repo, billing)

	req, err := svc.CreateDowngradeRequest(1, "owner@example.com", 10, 1)
	require.NoError(t, err)

	decided, err := svc.DecideDowngradeRequest(context.Background(), DecideDowngradeInput{
		RequestID:   req.ID,
		Decision:    DecisionApprove,
		DeciderName: "system",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DowngradeStatusApproved, decided.Status)
	assert.Equal(t, "system", decided.DeciderName)

	// Nothing to execute: billing is never consulted.
	assert.Zero(t, billing.listCalls)
}

func TestDecideDowngradeApproveExecutes(t *testing.T) {
	repo := newFakeRepository()
	repo.addPlan(models.PricingPlan{ID: 1, Name: "Free", IsActive: true})
	repo.addPlan(models.PricingPlan{ID: 2, Name: "Pro", PriceCents: 1999, IsActive: true})
	repo.addBusiness(models.Business{ID: 10, UserID: 1, PricingPlanID: uintPtr(2)})

	billing := newFakeBilling()
	billing.records = []CheckoutRecord{
		{SessionID: "cs_1", SubscriptionID: "sub_active", Mode: CheckoutRecordModeSubscription, OwnerID: 1, BusinessID: 10},
		{SessionID: "cs_2", SubscriptionID: "sub_done", Mode: CheckoutRecordModeSubscription, OwnerID: 1, BusinessID: 10},
	}
	billing.subs["sub_active"] = SubscriptionState{ID: "sub_active", Status: "active"}
	billing.subs["sub_done"] = SubscriptionState{ID: "sub_done", Status: "canceled"}

	svc := newTestService(repo, billing)

	req, err := svc.CreateDowngradeRequest(1, "owner@example.com", 10, 1)
	require.NoError(t, err)

	before := time.Now()
	decided, err := svc.DecideDowngradeRequest(context.Background(), DecideDowngradeInput{
		RequestID:   req.ID,
		Decision:    DecisionApprove,
		DeciderID:   3,
		DeciderName: "admin@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, models.DowngradeStatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedAt)
	assert.False(t, decided.DecidedAt.Before(before))

	// Only the still-active subscription is canceled, the plan pointer moves.
	assert.Equal(t, []string{"sub_active"}, billing.canceled)
	assert.Equal(t, uint(1), *repo.businesses[10].PricingPlanID)

	stored := repo.requests[req.ID]
	assert.Equal(t, models.DowngradeStatusApproved, stored.Status)
}
