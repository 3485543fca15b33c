package router

import (
	"bizdir/app/controllers"
	"bizdir/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/ping", controllers.HandlePing)

	// Public directory
	app.Get("/directory", loggedInMiddleware, controllers.HandleBusinessIndex)
	app.Get("/b/:slug", loggedInMiddleware, controllers.HandleBusinessDetail)
	app.Post("/b/:slug/like", loggedInMiddleware, controllers.HandleBusinessLike)
	app.Post("/b/:slug/contact-click", loggedInMiddleware, controllers.HandleBusinessContactClick)

	// Pricing page
	app.Get("/pricing", loggedInMiddleware, controllers.HandlePlans)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	if controllers.BillingEnabled() {
		app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
	}
}
