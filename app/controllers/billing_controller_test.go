package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdir/app/models"
	"bizdir/internal/pkg/payment"
)

// fakeBillingEventStore mimics the unique (provider, provider_event_id) index
// in memory.
type fakeBillingEventStore struct {
	created []*models.BillingEvent
	saved   int
}

func (s *fakeBillingEventStore) Create(event *models.BillingEvent) error {
	for _, prev := range s.created {
		if prev.Provider == event.Provider && prev.ProviderEventID == event.ProviderEventID {
			return errors.New("Error 1062 (23000): Duplicate entry 'stripe-" + event.ProviderEventID + "' for key 'ux_billing_events_provider_event'")
		}
	}
	s.created = append(s.created, event)
	return nil
}

func (s *fakeBillingEventStore) Save(event *models.BillingEvent) error {
	s.saved++
	return nil
}

// stripeSignature builds a valid Stripe-Signature header for a payload.
func stripeSignature(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func webhookRequest(secret string, payload []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", stripeSignature(secret, payload))
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	return m
}

func TestStripeWebhookDuplicateEventAcknowledged(t *testing.T) {
	restoreGateway := swapBillingGateway(payment.NewStripeGateway(payment.Config{
		SecretKey:     "sk_test",
		WebhookSecret: "whsec_test",
	}))
	defer restoreGateway()

	store := &fakeBillingEventStore{}
	prevStore := billingEvents
	billingEvents = store
	defer func() { billingEvents = prevStore }()

	app := fiber.New()
	app.Post("/webhooks/stripe", HandleStripeWebhook)

	payload := []byte(`{"id": "evt_1", "type": "invoice.paid", "data": {"object": {}}}`)

	resp, err := app.Test(webhookRequest("whsec_test", payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Event received", decodeBody(t, resp)["message"])
	require.Len(t, store.created, 1)
	assert.Equal(t, "evt_1", store.created[0].ProviderEventID)
	assert.True(t, store.created[0].SignatureValid)
	assert.NotNil(t, store.created[0].ProcessedAt)

	// Redelivery of the same event id is acknowledged without storing or
	// processing it again.
	resp, err = app.Test(webhookRequest("whsec_test", payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Event already processed", decodeBody(t, resp)["message"])
	assert.Len(t, store.created, 1)
	assert.Equal(t, 1, store.saved)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	restoreGateway := swapBillingGateway(payment.NewStripeGateway(payment.Config{
		SecretKey:     "sk_test",
		WebhookSecret: "whsec_test",
	}))
	defer restoreGateway()

	store := &fakeBillingEventStore{}
	prevStore := billingEvents
	billingEvents = store
	defer func() { billingEvents = prevStore }()

	app := fiber.New()
	app.Post("/webhooks/stripe", HandleStripeWebhook)

	payload := []byte(`{"id": "evt_2", "type": "invoice.paid", "data": {"object": {}}}`)
	resp, err := app.Test(webhookRequest("whsec_wrong", payload))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, store.created)
}

func TestBillingSuccessRejectsUnpaidSession(t *testing.T) {
	// An abandoned checkout still resolves by id and carries plan metadata;
	// visiting the success URL with it must not grant the plan.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions/cs_open", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "cs_open", "mode": "subscription", "payment_status": "unpaid",
			"metadata": {"owner_id": "7", "business_id": "10", "plan_id": "2"}}`)
	}))
	defer srv.Close()

	restoreGateway := swapBillingGateway(payment.NewStripeGateway(payment.Config{
		SecretKey: "sk_test",
		BaseURL:   srv.URL,
	}))
	defer restoreGateway()

	app := fiber.New()
	app.Get("/billing/success", HandleBillingSuccess)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/billing/success?session_id=cs_open", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "payment_incomplete", decodeBody(t, resp)["error"])
}
