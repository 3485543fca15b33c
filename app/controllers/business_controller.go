package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"bizdir/app/models"
	"bizdir/app/repository"
	"bizdir/internal/pkg/database"
	"bizdir/internal/pkg/metrics/counter"
	"bizdir/internal/pkg/plans"
	"bizdir/internal/pkg/usercontext"
)

// HandleBusinessIndex serves the public directory: approved listings,
// featured first, filterable by category, city and free-text search.
func HandleBusinessIndex(c *fiber.Ctx) error {
	offset, limit := pagination(c)
	filter := repository.BusinessFilter{
		Category: strings.TrimSpace(c.Query("category")),
		City:     strings.TrimSpace(c.Query("city")),
		Search:   strings.TrimSpace(c.Query("q")),
		Offset:   offset,
		Limit:    limit,
	}

	businesses, total, err := repository.GetGlobalFactory().GetBusinessRepository().ListApproved(filter)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listings")
	}

	items := make([]fiber.Map, 0, len(businesses))
	for i := range businesses {
		items = append(items, businessSummaryJSON(&businesses[i]))
	}

	return c.JSON(fiber.Map{
		"items": items,
		"total": total,
	})
}

// HandleBusinessDetail serves one approved listing by slug. An expired paid
// plan is repaired before the plan-gated sections are assembled, so a stale
// listing never shows entitlements it no longer has.
func HandleBusinessDetail(c *fiber.Ctx) error {
	slug := c.Params("slug")

	if _, err := planPolicyService().ReconcileSlug(slug); err != nil {
		log.Errorf("plan reconciliation failed for slug %s: %v", slug, err)
	}

	business, err := repository.GetGlobalFactory().GetBusinessRepository().GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listing")
	}

	userCtx := usercontext.GetUserContext(c)
	isOwner := userCtx.IsLoggedIn && userCtx.UserID == business.UserID
	if !business.IsApproved() && !isOwner && !userCtx.IsAdmin {
		return jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
	}

	if business.IsApproved() && !isOwner {
		if err := counter.AddBusinessView(business.ID); err != nil {
			log.Errorf("failed to count view for listing %d: %v", business.ID, err)
		}
	}

	return c.JSON(businessDetailJSON(business))
}

// HandleBusinessLike counts a like for an approved listing.
func HandleBusinessLike(c *fiber.Ctx) error {
	business, ok := approvedBySlug(c)
	if !ok {
		return nil
	}
	if err := counter.AddBusinessLike(business.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to register like")
	}
	return c.JSON(fiber.Map{"message": "Liked"})
}

// HandleBusinessContactClick counts a click on a listing's contact details.
func HandleBusinessContactClick(c *fiber.Ctx) error {
	business, ok := approvedBySlug(c)
	if !ok {
		return nil
	}
	if err := counter.AddContactClick(business.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to register click")
	}
	return c.JSON(fiber.Map{"message": "Recorded"})
}

// approvedBySlug loads a listing and rejects anything not publicly visible.
// On failure the error response has already been written and ok is false.
func approvedBySlug(c *fiber.Ctx) (*models.Business, bool) {
	business, err := repository.GetGlobalFactory().GetBusinessRepository().GetBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		} else {
			_ = jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listing")
		}
		return nil, false
	}
	if !business.IsApproved() {
		_ = jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		return nil, false
	}
	return business, true
}

func businessSummaryJSON(b *models.Business) fiber.Map {
	planName := ""
	if b.PricingPlan != nil && b.PricingPlan.IsActive {
		planName = b.PricingPlan.Name
	}
	return fiber.Map{
		"id":       b.ID,
		"name":     b.Name,
		"slug":     b.Slug,
		"category": b.Category,
		"city":     b.City,
		"featured": b.Featured,
		"plan":     planName,
		"logo_url": b.LogoURL,
	}
}

// businessDetailJSON assembles the full listing payload. Sections backed by a
// plan feature (gallery, menu, products, services, branding, badges) are only
// present when the current plan grants them.
func businessDetailJSON(b *models.Business) fiber.Map {
	payload := fiber.Map{
		"id":          b.ID,
		"uuid":        b.UUID,
		"name":        b.Name,
		"slug":        b.Slug,
		"description": b.Description,
		"category":    b.Category,
		"city":        b.City,
		"address":     b.Address,
		"phone":       b.Phone,
		"website":     b.Website,
		"status":      b.Status,
		"featured":    b.Featured,
		"view_count":  b.ViewCount,
		"like_count":  b.LikeCount,
		"contact":     b.Contact(),
		"created_at":  b.CreatedAt,
	}

	var enabled []string
	if b.PricingPlan != nil && b.PricingPlan.IsActive {
		enabled = plans.NormalizeFeatures(b.PricingPlan.FeatureList())
		payload["plan"] = b.PricingPlan.Name
	}

	if plans.HasFeature(enabled, plans.FeatureBranding) {
		payload["logo_url"] = b.LogoURL
		payload["cover_url"] = b.CoverURL
	}
	if plans.HasFeature(enabled, plans.FeatureBadges) {
		payload["verified"] = true
	}

	db := database.GetDB()
	if plans.HasFeature(enabled, plans.FeatureGallery) {
		var images []models.GalleryImage
		if err := db.Where("business_id = ?", b.ID).Order("position ASC, id ASC").Find(&images).Error; err == nil {
			payload["gallery"] = images
		}
	}
	if plans.HasFeature(enabled, plans.FeatureMenuItems) {
		var items []models.MenuItem
		if err := db.Where("business_id = ?", b.ID).Order("position ASC, id ASC").Find(&items).Error; err == nil {
			payload["menu_items"] = items
		}
	}
	if plans.HasFeature(enabled, plans.FeatureProducts) {
		var products []models.Product
		if err := db.Where("business_id = ?", b.ID).Order("id ASC").Find(&products).Error; err == nil {
			payload["products"] = products
		}
	}
	if plans.HasFeature(enabled, plans.FeatureServices) {
		var services []models.ServiceOffering
		if err := db.Where("business_id = ?", b.ID).Order("id ASC").Find(&services).Error; err == nil {
			payload["services"] = services
		}
	}

	return payload
}
