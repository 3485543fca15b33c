package controllers

import (
	"github.com/gofiber/fiber/v2"

	"bizdir/app/models"
	"bizdir/app/repository"
	"bizdir/internal/pkg/statistics"
)

// HandleStart serves the landing payload: directory statistics plus the
// currently featured listings.
func HandleStart(c *fiber.Ctx) error {
	stats := statistics.GetStatisticsData()

	featured, _, err := repository.GetGlobalFactory().GetBusinessRepository().ListApproved(repository.BusinessFilter{Limit: 6})
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listings")
	}

	items := make([]fiber.Map, 0, len(featured))
	for i := range featured {
		items = append(items, businessSummaryJSON(&featured[i]))
	}

	appSettings := models.GetAppSettings()

	return c.JSON(fiber.Map{
		"site_title":       appSettings.GetSiteTitle(),
		"total_businesses": stats.TotalBusinesses,
		"today_businesses": stats.TodayBusinesses,
		"total_users":      stats.TotalUsers,
		"featured":         items,
	})
}

// HandlePing is the health endpoint used by deploy checks.
func HandlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
