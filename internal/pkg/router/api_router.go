package router

import (
	"bizdir/app/controllers"
	"bizdir/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes: JSON mirror of the session-authenticated surface.
	v1 := api.Group("/v1")
	v1.Get("/directory", controllers.HandleBusinessIndex)
	v1.Get("/directory/:slug", controllers.HandleBusinessDetail)
	v1.Get("/plans", controllers.HandlePlans)

	authed := v1.Group("", middleware.RequireAPISessionAuth)
	authed.Get("/user/account", controllers.HandleUserAccount)
	authed.Get("/user/businesses", controllers.HandleUserBusinesses)
	authed.Get("/user/downgrades", controllers.HandleUserDowngradeRequests)
	authed.Post("/user/downgrades", controllers.HandleDowngradeRequestCreate)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
