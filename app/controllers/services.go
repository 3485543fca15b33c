package controllers

import (
	"sync"

	"bizdir/internal/pkg/database"
	"bizdir/internal/pkg/env"
	"bizdir/internal/pkg/payment"
	"bizdir/internal/pkg/planpolicy"
)

var (
	stripeGateway     *payment.StripeGateway
	stripeGatewayOnce sync.Once
)

// billingGateway returns the process-wide Stripe gateway. It exists even when
// no secret key is configured; callers check Enabled() before mounting or
// using billing functionality.
func billingGateway() *payment.StripeGateway {
	stripeGatewayOnce.Do(func() {
		stripeGateway = payment.NewStripeGateway(payment.Config{
			SecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:    env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000") + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:     env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000") + "/billing/cancel",
		})
	})
	return stripeGateway
}

// swapBillingGateway replaces the process gateway and returns a restore
// function. Test hook.
func swapBillingGateway(g *payment.StripeGateway) func() {
	stripeGatewayOnce.Do(func() {})
	prev := stripeGateway
	stripeGateway = g
	return func() { stripeGateway = prev }
}

// BillingEnabled reports whether Stripe credentials are configured. The
// router only mounts billing routes when this is true.
func BillingEnabled() bool {
	return billingGateway().Enabled()
}

// planPolicyService builds the downgrade policy service on the shared DB
// handle with the live billing provider.
func planPolicyService() *planpolicy.Service {
	return planpolicy.NewServiceFromDB(database.GetDB(), billingGateway())
}
