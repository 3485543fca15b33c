package controllers

import (
	"github.com/gofiber/fiber/v2"

	"bizdir/app/repository"
)

// HandlePlans serves the public pricing page data: active plans only, cheapest
// first.
func HandlePlans(c *fiber.Ctx) error {
	active, err := repository.GetGlobalFactory().GetPlanRepository().GetAll(false)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load plans")
	}

	items := make([]fiber.Map, 0, len(active))
	for i := range active {
		item := planJSON(&active[i])
		delete(item, "stripe_price_id")
		items = append(items, item)
	}
	return c.JSON(fiber.Map{"items": items})
}
