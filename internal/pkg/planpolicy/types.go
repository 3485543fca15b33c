package planpolicy

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors the transport layer maps to status codes. NotFound and
// Conflict are expected user-facing outcomes, not exceptional states.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Decisions an admin (or the automatic mode) can make on a downgrade request.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// CheckoutRecordModeSubscription marks provider checkout records that opened
// a recurring subscription rather than a one-off payment.
const CheckoutRecordModeSubscription = "subscription"

// CheckoutRecord is a provider-side checkout session, reduced to the metadata
// this subsystem correlates on. OwnerID/BusinessID/PlanID are zero when the
// session was not tagged with them.
type CheckoutRecord struct {
	SessionID      string
	SubscriptionID string
	Mode           string
	PaymentStatus  string
	CustomerEmail  string
	OwnerID        uint
	BusinessID     uint
	PlanID         uint
}

// Paid reports whether the checkout session has actually been settled.
// Open or expired sessions carry valid metadata too, so callers must not
// grant a plan from an unpaid record.
func (r *CheckoutRecord) Paid() bool {
	switch r.PaymentStatus {
	case "paid", "no_payment_required":
		return true
	default:
		return false
	}
}

// SubscriptionState is the provider-side view of one recurring subscription.
type SubscriptionState struct {
	ID                string
	Status            string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
}

// IsCanceled reports whether the subscription is already in a terminal
// canceled state and must be skipped rather than canceled again.
func (s *SubscriptionState) IsCanceled() bool {
	switch s.Status {
	case "canceled", "incomplete_expired":
		return true
	default:
		return false
	}
}

// BillingProvider is the external billing collaborator. The production
// implementation talks to Stripe; tests substitute a fake. The provider is
// the source of truth for money, the local database only mirrors plan
// pointers.
type BillingProvider interface {
	// ListCheckoutRecords returns recent checkout sessions with their
	// correlation metadata. The provider bounds the page size.
	ListCheckoutRecords(ctx context.Context) ([]CheckoutRecord, error)
	// GetSubscription fetches the current state of one subscription.
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionState, error)
	// CancelSubscription cancels a subscription immediately, not at period
	// end.
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// EntitlementContext is the resolved entitlement state for one owner+listing
// pair. It is a snapshot: feature checks against it do no further I/O.
type EntitlementContext struct {
	BusinessID      uint
	OwnerID         uint
	HasActivePlan   bool
	PlanID          *uint
	PlanName        string
	EnabledFeatures []string
	GalleryLimit    int
}

// DecideDowngradeInput carries one admin decision on a pending request.
type DecideDowngradeInput struct {
	RequestID   uint
	Decision    string
	DeciderID   uint
	DeciderName string
}
