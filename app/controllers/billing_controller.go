package controllers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"bizdir/app/models"
	"bizdir/app/repository"
	"bizdir/internal/pkg/database"
	"bizdir/internal/pkg/payment"
	"bizdir/internal/pkg/usercontext"
)

// HandleBillingCheckout starts a subscription checkout that moves an owned
// listing onto a paid plan. The response carries the provider's hosted
// checkout URL.
func HandleBillingCheckout(c *fiber.Ctx) error {
	gateway := billingGateway()
	if !gateway.Enabled() {
		return jsonError(c, fiber.StatusServiceUnavailable, "billing_disabled", "Billing is not configured")
	}

	userCtx := usercontext.GetUserContext(c)
	businessID := uint(formInt64(c, "business_id"))
	planID := uint(formInt64(c, "plan_id"))
	if businessID == 0 || planID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "business_id and plan_id are required")
	}

	factory := repository.GetGlobalFactory()
	if _, err := factory.GetBusinessRepository().GetOwned(userCtx.UserID, businessID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listing")
	}

	plan, err := factory.GetPlanRepository().GetByID(planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Plan not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load plan")
	}
	if !plan.IsActive {
		return jsonError(c, fiber.StatusConflict, "conflict", "This plan is no longer offered")
	}
	if plan.IsFree() {
		return jsonError(c, fiber.StatusConflict, "conflict", "Free plans are assigned via a downgrade request, not checkout")
	}
	if plan.StripePriceID == "" {
		return jsonError(c, fiber.StatusConflict, "conflict", "This plan has no billing price configured")
	}

	session, err := gateway.CreateCheckoutSession(c.Context(), payment.CreateCheckoutInput{
		CustomerEmail: userCtx.Email,
		OwnerID:       userCtx.UserID,
		BusinessID:    businessID,
		PlanID:        plan.ID,
		PriceID:       plan.StripePriceID,
	})
	if err != nil {
		log.Errorf("checkout session creation failed for user %d: %v", userCtx.UserID, err)
		return jsonError(c, fiber.StatusBadGateway, "provider_error", "Failed to start checkout")
	}

	return c.JSON(fiber.Map{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

// HandleBillingSuccess confirms a finished checkout session and applies the
// purchased plan right away instead of waiting for the webhook.
func HandleBillingSuccess(c *fiber.Ctx) error {
	gateway := billingGateway()
	if !gateway.Enabled() {
		return jsonError(c, fiber.StatusServiceUnavailable, "billing_disabled", "Billing is not configured")
	}

	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Missing session_id")
	}

	record, err := gateway.GetCheckoutSession(c.Context(), sessionID)
	if err != nil {
		log.Errorf("failed to confirm checkout session %s: %v", sessionID, err)
		return jsonError(c, fiber.StatusBadGateway, "provider_error", "Failed to confirm checkout")
	}

	// The session id alone proves nothing: an owner can create a session and
	// visit the success URL without paying. The provider's payment status is
	// the source of truth.
	if !record.Paid() {
		return jsonError(c, fiber.StatusConflict, "payment_incomplete", "Payment for this checkout session has not completed")
	}

	if record.BusinessID != 0 && record.PlanID != 0 {
		if err := applyPurchasedPlan(record.BusinessID, record.PlanID); err != nil {
			log.Errorf("failed to apply plan %d to listing %d: %v", record.PlanID, record.BusinessID, err)
		}
	}

	return c.JSON(fiber.Map{"message": "Payment confirmed. Your plan is active."})
}

// HandleBillingCancelAtPeriodEnd flags the subscription behind an owned
// listing to lapse at the end of the paid period.
func HandleBillingCancelAtPeriodEnd(c *fiber.Ctx) error {
	gateway := billingGateway()
	if !gateway.Enabled() {
		return jsonError(c, fiber.StatusServiceUnavailable, "billing_disabled", "Billing is not configured")
	}

	subscriptionID := strings.TrimSpace(c.FormValue("subscription_id"))
	if subscriptionID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "subscription_id is required")
	}

	// The subscription must belong to the caller.
	userCtx := usercontext.GetUserContext(c)
	records, err := gateway.ListCheckoutRecords(c.Context())
	if err != nil {
		return jsonError(c, fiber.StatusBadGateway, "provider_error", "Failed to verify subscription ownership")
	}
	owned := false
	for _, rec := range records {
		if rec.SubscriptionID != subscriptionID {
			continue
		}
		if rec.OwnerID == userCtx.UserID || strings.EqualFold(rec.CustomerEmail, userCtx.Email) {
			owned = true
			break
		}
	}
	if !owned {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Subscription not found")
	}

	if err := gateway.SetCancelAtPeriodEnd(c.Context(), subscriptionID, true); err != nil {
		log.Errorf("failed to set cancel_at_period_end on %s: %v", subscriptionID, err)
		return jsonError(c, fiber.StatusBadGateway, "provider_error", "Failed to schedule cancellation")
	}

	return c.JSON(fiber.Map{"message": "Subscription will end at the close of the current period"})
}

// billingEventStore persists webhook event records. The indirection keeps the
// idempotency behavior testable without a live database.
type billingEventStore interface {
	Create(event *models.BillingEvent) error
	Save(event *models.BillingEvent) error
}

type gormBillingEventStore struct{}

func (gormBillingEventStore) Create(event *models.BillingEvent) error {
	return database.GetDB().Create(event).Error
}

func (gormBillingEventStore) Save(event *models.BillingEvent) error {
	return database.GetDB().Save(event).Error
}

var billingEvents billingEventStore = gormBillingEventStore{}

// stripeWebhookEvent is the envelope Stripe posts to the webhook endpoint.
type stripeWebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// HandleStripeWebhook ingests provider events. Every event is verified and
// stored exactly once; replays of an already stored event are acknowledged
// without reprocessing.
func HandleStripeWebhook(c *fiber.Ctx) error {
	gateway := billingGateway()
	payload := c.Body()

	if err := gateway.VerifyWebhook(payload, c.Get("Stripe-Signature")); err != nil {
		log.Errorf("webhook signature verification failed: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Signature verification failed")
	}

	var event stripeWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.ID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Malformed event payload")
	}

	billingEvent := &models.BillingEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	}
	if err := billingEvents.Create(billingEvent); err != nil {
		// The unique provider+event index makes duplicate deliveries a no-op.
		if isDuplicateKeyError(err) {
			return c.JSON(fiber.Map{"message": "Event already processed"})
		}
		log.Errorf("failed to store billing event %s: %v", event.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to store event")
	}

	processErr := processStripeEvent(&event)

	now := time.Now()
	billingEvent.ProcessedAt = &now
	if processErr != nil {
		billingEvent.ProcessingError = processErr.Error()
		log.Errorf("failed to process billing event %s (%s): %v", event.ID, event.Type, processErr)
	}
	if err := billingEvents.Save(billingEvent); err != nil {
		log.Errorf("failed to update billing event %s: %v", event.ID, err)
	}

	// Always 200 once stored: the event is safe and failures are visible in
	// the processing_error column.
	return c.JSON(fiber.Map{"message": "Event received"})
}

// processStripeEvent applies the side effects of one verified event.
func processStripeEvent(event *stripeWebhookEvent) error {
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var object struct {
			Customer      string            `json:"customer"`
			PaymentStatus string            `json:"payment_status"`
			Metadata      map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(event.Data.Object, &object); err != nil {
			return err
		}
		if object.PaymentStatus != "paid" && object.PaymentStatus != "no_payment_required" {
			// Async payment methods complete the session before the money
			// settles; the async_payment_succeeded event follows up.
			return nil
		}
		businessID := metaID(object.Metadata, payment.MetaBusinessID)
		planID := metaID(object.Metadata, payment.MetaPlanID)
		if businessID == 0 || planID == 0 {
			// Sessions created before metadata tagging; nothing to apply.
			return nil
		}
		if ownerID := metaID(object.Metadata, payment.MetaOwnerID); ownerID != 0 && object.Customer != "" {
			rememberStripeCustomer(ownerID, object.Customer)
		}
		return applyPurchasedPlan(businessID, planID)
	case "customer.subscription.deleted":
		// The expiry reconciler demotes the listing once the plan runs out;
		// nothing to do immediately.
		return nil
	default:
		return nil
	}
}

// applyPurchasedPlan moves a listing onto the plan it paid for.
func applyPurchasedPlan(businessID, planID uint) error {
	factory := repository.GetGlobalFactory()
	if _, err := factory.GetPlanRepository().GetByID(planID); err != nil {
		return err
	}

	business, err := factory.GetBusinessRepository().GetByID(businessID)
	if err != nil {
		return err
	}
	business.PricingPlanID = &planID
	return factory.GetBusinessRepository().Update(business)
}

// rememberStripeCustomer stores the provider customer id on the account for
// later support lookups. Best effort.
func rememberStripeCustomer(userID uint, customerID string) {
	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByID(userID)
	if err != nil || user.StripeCustomerID == customerID {
		return
	}
	user.StripeCustomerID = customerID
	if err := userRepo.Update(user); err != nil {
		log.Errorf("failed to store stripe customer id for user %d: %v", userID, err)
	}
}

func metaID(meta map[string]string, key string) uint {
	v, err := strconv.ParseUint(meta[key], 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

// isDuplicateKeyError detects a unique index violation across drivers.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "unique constraint")
}
