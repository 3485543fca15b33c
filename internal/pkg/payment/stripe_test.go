package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.Handler) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStripeGateway(Config{
		SecretKey:  "sk_test_123",
		SuccessURL: "https://example.com/billing/success",
		CancelURL:  "https://example.com/billing/cancel",
		BaseURL:    srv.URL,
	})
}

func TestListCheckoutRecordsPagination(t *testing.T) {
	var authHeader string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		authHeader = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("starting_after") == "" {
			fmt.Fprint(w, `{
				"data": [
					{"id": "cs_1", "mode": "subscription", "subscription": "sub_1",
					 "customer_details": {"email": "owner@example.com"},
					 "metadata": {"owner_id": "7", "business_id": "10", "plan_id": "2"}},
					{"id": "cs_2", "mode": "payment", "metadata": {}}
				],
				"has_more": true
			}`)
			return
		}
		require.Equal(t, "cs_2", r.URL.Query().Get("starting_after"))
		fmt.Fprint(w, `{
			"data": [
				{"id": "cs_3", "mode": "subscription", "subscription": "sub_3",
				 "customer_email": "legacy@example.com", "metadata": {"plan_id": "not-a-number"}}
			],
			"has_more": false
		}`)
	})

	g := newTestGateway(t, handler)
	records, err := g.ListCheckoutRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Bearer sk_test_123", authHeader)

	assert.Equal(t, "cs_1", records[0].SessionID)
	assert.Equal(t, "sub_1", records[0].SubscriptionID)
	assert.Equal(t, "subscription", records[0].Mode)
	assert.Equal(t, "owner@example.com", records[0].CustomerEmail)
	assert.Equal(t, uint(7), records[0].OwnerID)
	assert.Equal(t, uint(10), records[0].BusinessID)
	assert.Equal(t, uint(2), records[0].PlanID)

	// Legacy session without metadata ids falls back to email matching.
	assert.Equal(t, "legacy@example.com", records[2].CustomerEmail)
	assert.Zero(t, records[2].OwnerID)
	assert.Zero(t, records[2].PlanID)
}

func TestGetSubscription(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/subscriptions/sub_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "sub_1", "status": "canceled", "cancel_at_period_end": false, "current_period_end": 1767225600}`)
	})

	g := newTestGateway(t, handler)
	sub, err := g.GetSubscription(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "canceled", sub.Status)
	assert.True(t, sub.IsCanceled())
	assert.Equal(t, 2026, sub.CurrentPeriodEnd.Year())
}

func TestGetCheckoutSessionCarriesPaymentStatus(t *testing.T) {
	sessions := map[string]string{
		// An abandoned session keeps its correlation metadata even though
		// nobody ever paid for it.
		"cs_open": `{"id": "cs_open", "mode": "subscription", "payment_status": "unpaid",
			"customer_details": {"email": "owner@example.com"},
			"metadata": {"owner_id": "7", "business_id": "10", "plan_id": "2"}}`,
		"cs_done": `{"id": "cs_done", "mode": "subscription", "payment_status": "paid",
			"subscription": "sub_1",
			"metadata": {"owner_id": "7", "business_id": "10", "plan_id": "2"}}`,
		"cs_trial": `{"id": "cs_trial", "mode": "subscription", "payment_status": "no_payment_required",
			"metadata": {"owner_id": "7", "business_id": "10", "plan_id": "2"}}`,
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/v1/checkout/sessions/")
		body, ok := sessions[id]
		require.True(t, ok, "unexpected session id %s", id)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})

	g := newTestGateway(t, handler)

	open, err := g.GetCheckoutSession(context.Background(), "cs_open")
	require.NoError(t, err)
	assert.Equal(t, "unpaid", open.PaymentStatus)
	assert.False(t, open.Paid())
	assert.Equal(t, uint(10), open.BusinessID)

	done, err := g.GetCheckoutSession(context.Background(), "cs_done")
	require.NoError(t, err)
	assert.True(t, done.Paid())

	trial, err := g.GetCheckoutSession(context.Background(), "cs_trial")
	require.NoError(t, err)
	assert.True(t, trial.Paid())
}

func TestCancelSubscription(t *testing.T) {
	var method string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		require.Equal(t, "/v1/subscriptions/sub_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "sub_1", "status": "canceled"}`)
	})

	g := newTestGateway(t, handler)
	require.NoError(t, g.CancelSubscription(context.Background(), "sub_1"))
	assert.Equal(t, http.MethodDelete, method)
}

func TestCreateCheckoutSession(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "owner@example.com", r.PostForm.Get("customer_email"))
		assert.Equal(t, "price_pro_monthly", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "7", r.PostForm.Get("metadata[owner_id]"))
		assert.Equal(t, "10", r.PostForm.Get("metadata[business_id]"))
		assert.Equal(t, "2", r.PostForm.Get("metadata[plan_id]"))
		assert.Equal(t, "https://example.com/billing/success", r.PostForm.Get("success_url"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "cs_new", "url": "https://checkout.stripe.com/pay/cs_new"}`)
	})

	g := newTestGateway(t, handler)
	session, err := g.CreateCheckoutSession(context.Background(), CreateCheckoutInput{
		CustomerEmail: "owner@example.com",
		OwnerID:       7,
		BusinessID:    10,
		PlanID:        2,
		PriceID:       "price_pro_monthly",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_new", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_new", session.URL)
}

func TestStripeErrorSurfaced(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "card_error", "code": "card_declined", "message": "Your card was declined."},
		})
	})

	g := newTestGateway(t, handler)
	_, err := g.GetSubscription(context.Background(), "sub_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Your card was declined.")
}

func TestGatewayEnabled(t *testing.T) {
	assert.True(t, NewStripeGateway(Config{SecretKey: "sk_test"}).Enabled())
	assert.False(t, NewStripeGateway(Config{}).Enabled())
}
