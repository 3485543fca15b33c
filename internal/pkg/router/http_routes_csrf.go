package router

import (
	"strings"
	"time"

	"bizdir/app/controllers"
	"bizdir/internal/pkg/env"
	"bizdir/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/webhooks/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleStart)
	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLoginPage)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Get("/activate", loggedInMiddleware, controllers.HandleAuthActivate)

	// Owner account + listings
	group.Get("/user/account", middleware.RequireAuth, controllers.HandleUserAccount)
	group.Get("/user/businesses", middleware.RequireAuth, controllers.HandleUserBusinesses)
	group.Post("/user/businesses", middleware.RequireAuth, controllers.HandleUserBusinessCreate)
	group.Post("/user/businesses/update/:id", middleware.RequireAuth, controllers.HandleUserBusinessUpdate)
	group.Post("/user/businesses/delete/:id", middleware.RequireAuth, controllers.HandleUserBusinessDelete)

	// Plan-gated listing content
	group.Get("/user/businesses/:id/gallery", middleware.RequireAuth, controllers.HandleGalleryList)
	group.Post("/user/businesses/:id/gallery", middleware.RequireAuth, controllers.HandleGalleryAdd)
	group.Post("/user/businesses/:id/gallery/delete/:itemID", middleware.RequireAuth, controllers.HandleGalleryDelete)
	group.Get("/user/businesses/:id/menu", middleware.RequireAuth, controllers.HandleMenuItemList)
	group.Post("/user/businesses/:id/menu", middleware.RequireAuth, controllers.HandleMenuItemCreate)
	group.Post("/user/businesses/:id/menu/delete/:itemID", middleware.RequireAuth, controllers.HandleMenuItemDelete)
	group.Get("/user/businesses/:id/products", middleware.RequireAuth, controllers.HandleProductList)
	group.Post("/user/businesses/:id/products", middleware.RequireAuth, controllers.HandleProductCreate)
	group.Post("/user/businesses/:id/products/delete/:itemID", middleware.RequireAuth, controllers.HandleProductDelete)
	group.Get("/user/businesses/:id/services", middleware.RequireAuth, controllers.HandleServiceList)
	group.Post("/user/businesses/:id/services", middleware.RequireAuth, controllers.HandleServiceCreate)
	group.Post("/user/businesses/:id/services/delete/:itemID", middleware.RequireAuth, controllers.HandleServiceDelete)

	// Downgrade requests
	group.Get("/user/downgrades", middleware.RequireAuth, controllers.HandleUserDowngradeRequests)
	group.Post("/user/downgrades", middleware.RequireAuth, controllers.HandleDowngradeRequestCreate)

	// Billing
	if controllers.BillingEnabled() {
		group.Post("/billing/checkout", middleware.RequireAuth, controllers.HandleBillingCheckout)
		group.Get("/billing/success", middleware.RequireAuth, controllers.HandleBillingSuccess)
		group.Post("/billing/cancel-at-period-end", middleware.RequireAuth, controllers.HandleBillingCancelAtPeriodEnd)
	}
}
