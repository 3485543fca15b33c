package router

import (
	"bizdir/app/controllers"
	"bizdir/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/", controllers.HandleAdminDashboard)
	adminGroup.Get("/users", controllers.HandleAdminUsers)
	adminGroup.Post("/users/update/:id", controllers.HandleAdminUserUpdate)

	// Listing moderation
	adminGroup.Get("/moderation", controllers.HandleAdminModerationQueue)
	adminGroup.Post("/listings/:id/decide", controllers.HandleAdminListingDecision)
	adminGroup.Post("/listings/:id/feature", controllers.HandleAdminListingFeature)

	// Plan management
	adminGroup.Get("/plans", controllers.HandleAdminPlans)
	adminGroup.Post("/plans", controllers.HandleAdminPlanCreate)
	adminGroup.Post("/plans/update/:id", controllers.HandleAdminPlanUpdate)
	adminGroup.Post("/plans/delete/:id", controllers.HandleAdminPlanDelete)

	// Downgrade policy + request queue
	adminGroup.Get("/policy", controllers.HandleAdminPolicyGet)
	adminGroup.Post("/policy", controllers.HandleAdminPolicySave)
	adminGroup.Get("/downgrades", controllers.HandleAdminDowngradeRequests)
	adminGroup.Post("/downgrades/:id/decide", controllers.HandleAdminDowngradeDecide)

	// Background jobs
	adminGroup.Post("/jobs/expiry-sweep", controllers.HandleAdminExpirySweep)
}
