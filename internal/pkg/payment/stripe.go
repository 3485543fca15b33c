package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bizdir/internal/pkg/planpolicy"

	stripe "github.com/stripe/stripe-go/v82"
)

// stripeAPIBase is the default Stripe API base URL, overridable in tests.
const stripeAPIBase = "https://api.stripe.com"

// checkoutPageSize is the Stripe list page size used when scanning sessions.
const checkoutPageSize = 100

// Metadata keys attached to checkout sessions at creation time so webhooks
// and downgrades can correlate a session back to our records.
const (
	MetaOwnerID    = "owner_id"
	MetaBusinessID = "business_id"
	MetaPlanID     = "plan_id"
)

// Config holds the Stripe gateway configuration.
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	BaseURL       string // test override; defaults to stripeAPIBase
}

// StripeGateway talks to the Stripe REST API directly over form-encoded
// requests. It implements planpolicy.BillingProvider and carries the
// checkout/webhook operations the billing controller needs.
type StripeGateway struct {
	httpClient *http.Client
	cfg        Config
	baseURL    string
}

// NewStripeGateway creates a gateway with a 20 second request timeout.
func NewStripeGateway(cfg Config) *StripeGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = stripeAPIBase
	}
	return &StripeGateway{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		cfg:        cfg,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// Enabled reports whether a secret key is configured. Billing routes are
// mounted only when this is true.
func (g *StripeGateway) Enabled() bool {
	return g.cfg.SecretKey != ""
}

// CheckoutSession is the subset of a created Stripe checkout session the
// controller redirects with.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutInput carries everything needed to start a plan purchase.
type CreateCheckoutInput struct {
	CustomerEmail string
	OwnerID       uint
	BusinessID    uint
	PlanID        uint
	PriceID       string
}

// CreateCheckoutSession starts a subscription-mode checkout for a plan. The
// owner, listing and plan ids go into the session metadata; downgrades and
// webhook handling correlate on them later.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in CreateCheckoutInput) (*CheckoutSession, error) {
	params := url.Values{}
	params.Set("mode", "subscription")
	params.Set("customer_email", in.CustomerEmail)
	params.Set("client_reference_id", strconv.FormatUint(uint64(in.OwnerID), 10))
	params.Set("success_url", g.cfg.SuccessURL)
	params.Set("cancel_url", g.cfg.CancelURL)
	params.Set("line_items[0][price]", in.PriceID)
	params.Set("line_items[0][quantity]", "1")
	params.Set(fmt.Sprintf("metadata[%s]", MetaOwnerID), strconv.FormatUint(uint64(in.OwnerID), 10))
	params.Set(fmt.Sprintf("metadata[%s]", MetaBusinessID), strconv.FormatUint(uint64(in.BusinessID), 10))
	params.Set(fmt.Sprintf("metadata[%s]", MetaPlanID), strconv.FormatUint(uint64(in.PlanID), 10))

	resp, err := g.doPost(ctx, "/v1/checkout/sessions", params)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, g.errorFromResponse(resp, "CreateCheckoutSession")
	}

	var session stripeCheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decoding checkout session response: %w", err)
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// GetCheckoutSession loads one checkout session by id.
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*planpolicy.CheckoutRecord, error) {
	resp, err := g.doGet(ctx, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("retrieving checkout session %s: %w", sessionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, g.errorFromResponse(resp, "GetCheckoutSession")
	}

	var session stripeCheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decoding checkout session response: %w", err)
	}
	record := mapCheckoutSession(&session)
	return &record, nil
}

// ListCheckoutRecords pages through all checkout sessions of the account and
// maps them to provider-neutral records. Pagination follows Stripe's
// starting_after cursor until has_more turns false.
func (g *StripeGateway) ListCheckoutRecords(ctx context.Context) ([]planpolicy.CheckoutRecord, error) {
	var (
		records       []planpolicy.CheckoutRecord
		startingAfter string
	)
	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(checkoutPageSize))
		if startingAfter != "" {
			params.Set("starting_after", startingAfter)
		}

		resp, err := g.doGet(ctx, "/v1/checkout/sessions", params)
		if err != nil {
			return nil, fmt.Errorf("listing checkout sessions: %w", err)
		}

		var list stripeCheckoutSessionList
		decodeErr := json.NewDecoder(resp.Body).Decode(&list)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, g.errorFromStatus(resp.StatusCode, "ListCheckoutRecords")
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("decoding checkout session list: %w", decodeErr)
		}

		for i := range list.Data {
			records = append(records, mapCheckoutSession(&list.Data[i]))
		}
		if !list.HasMore || len(list.Data) == 0 {
			break
		}
		startingAfter = list.Data[len(list.Data)-1].ID
	}
	return records, nil
}

// GetSubscription retrieves the live state of one subscription.
func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*planpolicy.SubscriptionState, error) {
	resp, err := g.doGet(ctx, "/v1/subscriptions/"+url.PathEscape(subscriptionID), nil)
	if err != nil {
		return nil, fmt.Errorf("retrieving subscription %s: %w", subscriptionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, g.errorFromResponse(resp, "GetSubscription")
	}

	var sub stripeSubscription
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("decoding subscription response: %w", err)
	}
	state := mapSubscription(&sub)
	return &state, nil
}

// CancelSubscription cancels a subscription immediately.
func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	resp, err := g.doDelete(ctx, "/v1/subscriptions/"+url.PathEscape(subscriptionID))
	if err != nil {
		return fmt.Errorf("canceling subscription %s: %w", subscriptionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return g.errorFromResponse(resp, "CancelSubscription")
	}
	return nil
}

// SetCancelAtPeriodEnd flips the cancel_at_period_end flag so an owner keeps
// the plan until the paid period runs out.
func (g *StripeGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) error {
	params := url.Values{}
	params.Set("cancel_at_period_end", strconv.FormatBool(cancel))

	resp, err := g.doPost(ctx, "/v1/subscriptions/"+url.PathEscape(subscriptionID), params)
	if err != nil {
		return fmt.Errorf("updating subscription %s: %w", subscriptionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return g.errorFromResponse(resp, "SetCancelAtPeriodEnd")
	}
	return nil
}

// VerifyWebhook validates a webhook payload against its signature header
// using stripe-go's HMAC check with timestamp tolerance.
func (g *StripeGateway) VerifyWebhook(payload []byte, signatureHeader string) error {
	return stripe.ValidatePayload(payload, signatureHeader, g.cfg.WebhookSecret)
}

func (g *StripeGateway) doGet(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := g.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	g.setAuthHeaders(req)
	return g.httpClient.Do(req)
}

func (g *StripeGateway) doPost(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	g.setAuthHeaders(req)
	return g.httpClient.Do(req)
}

func (g *StripeGateway) doDelete(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, g.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	g.setAuthHeaders(req)
	return g.httpClient.Do(req)
}

func (g *StripeGateway) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	req.Header.Set("Stripe-Version", stripe.APIVersion)
}

// errorFromResponse reads a Stripe error body and turns it into a plain error
// with the operation, status and Stripe message.
func (g *StripeGateway) errorFromResponse(resp *http.Response, operation string) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("%s: stripe returned status %d, body unreadable: %w", operation, resp.StatusCode, readErr)
	}
	var stripeErr stripeErrorResponse
	if err := json.Unmarshal(body, &stripeErr); err != nil || stripeErr.Error.Message == "" {
		return fmt.Errorf("%s: stripe returned status %d", operation, resp.StatusCode)
	}
	return fmt.Errorf("%s: stripe error (%d): %s", operation, resp.StatusCode, stripeErr.Error.Message)
}

func (g *StripeGateway) errorFromStatus(statusCode int, operation string) error {
	return fmt.Errorf("%s: stripe returned status %d", operation, statusCode)
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type stripeCheckoutSession struct {
	ID              string            `json:"id"`
	Mode            string            `json:"mode"`
	URL             string            `json:"url"`
	PaymentStatus   string            `json:"payment_status"`
	Subscription    string            `json:"subscription"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

type stripeCheckoutSessionList struct {
	Data    []stripeCheckoutSession `json:"data"`
	HasMore bool                    `json:"has_more"`
}

type stripeSubscription struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
}

// mapCheckoutSession converts a Stripe session into a provider-neutral
// record. customer_details.email wins over the customer_email the session was
// created with; sessions created before metadata tagging was introduced end
// up with zero ids and are matched by email downstream.
func mapCheckoutSession(s *stripeCheckoutSession) planpolicy.CheckoutRecord {
	email := s.CustomerEmail
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		email = s.CustomerDetails.Email
	}
	return planpolicy.CheckoutRecord{
		SessionID:      s.ID,
		SubscriptionID: s.Subscription,
		Mode:           s.Mode,
		PaymentStatus:  s.PaymentStatus,
		CustomerEmail:  email,
		OwnerID:        metaUint(s.Metadata, MetaOwnerID),
		BusinessID:     metaUint(s.Metadata, MetaBusinessID),
		PlanID:         metaUint(s.Metadata, MetaPlanID),
	}
}

func mapSubscription(sub *stripeSubscription) planpolicy.SubscriptionState {
	state := planpolicy.SubscriptionState{
		ID:                sub.ID,
		Status:            sub.Status,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodEnd > 0 {
		state.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	return state
}

// metaUint parses an unsigned id out of session metadata, 0 when absent or
// malformed.
func metaUint(meta map[string]string, key string) uint {
	raw, ok := meta[key]
	if !ok || raw == "" {
		return 0
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		log.Printf("stripe session metadata %s=%q is not a valid id", key, raw)
		return 0
	}
	return uint(v)
}
