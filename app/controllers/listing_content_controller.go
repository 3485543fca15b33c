package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"bizdir/app/models"
	"bizdir/app/repository"
	"bizdir/internal/pkg/database"
	"bizdir/internal/pkg/plans"
	"bizdir/internal/pkg/planpolicy"
	"bizdir/internal/pkg/usercontext"
)

// requireFeature resolves the caller's entitlements for the listing in the
// :id parameter and enforces one feature. On failure the response has already
// been written and ok is false.
func requireFeature(c *fiber.Ctx, featureKey string) (*planpolicy.EntitlementContext, bool) {
	userCtx := usercontext.GetUserContext(c)
	businessID := paramUint(c, "id")

	entCtx, err := planPolicyService().ResolveContext(userCtx.UserID, businessID)
	if err != nil {
		if errors.Is(err, planpolicy.ErrNotFound) {
			_ = jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		} else {
			_ = jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to resolve plan entitlements")
		}
		return nil, false
	}

	if err := planpolicy.CheckFeatureAccess(entCtx, featureKey); err != nil {
		_ = jsonError(c, fiber.StatusForbidden, "plan_required", err.Error())
		return nil, false
	}
	return entCtx, true
}

// --- gallery ---

// HandleGalleryList returns the gallery of an owned listing.
func HandleGalleryList(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureGallery)
	if !ok {
		return nil
	}

	var images []models.GalleryImage
	if err := database.GetDB().Where("business_id = ?", entCtx.BusinessID).Order("position ASC, id ASC").Find(&images).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load gallery")
	}

	return c.JSON(fiber.Map{
		"items": images,
		"limit": entCtx.GalleryLimit,
	})
}

// HandleGalleryAdd appends an image to the gallery, enforcing the plan's
// slot limit. A limit of zero means the plan carries no cap.
func HandleGalleryAdd(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureGallery)
	if !ok {
		return nil
	}

	if entCtx.GalleryLimit > 0 {
		count, err := repository.GetGlobalFactory().GetBusinessRepository().CountGalleryImages(entCtx.BusinessID)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check gallery size")
		}
		if count >= int64(entCtx.GalleryLimit) {
			return jsonError(c, fiber.StatusForbidden, "limit_reached", "Your plan's gallery limit is reached. Remove an image or upgrade your plan.")
		}
	}

	image := &models.GalleryImage{
		BusinessID: entCtx.BusinessID,
		URL:        strings.TrimSpace(c.FormValue("url")),
		Caption:    strings.TrimSpace(c.FormValue("caption")),
		Position:   formInt(c, "position"),
	}
	if v := validateStruct(image); v != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", v.Error())
	}

	if err := database.GetDB().Create(image).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save image")
	}

	return c.Status(fiber.StatusCreated).JSON(image)
}

// HandleGalleryDelete removes one image from an owned listing's gallery.
func HandleGalleryDelete(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureGallery)
	if !ok {
		return nil
	}
	return deleteOwnedRow(c, &models.GalleryImage{}, entCtx.BusinessID, "Image")
}

// --- menu items ---

// HandleMenuItemList returns the menu of an owned listing.
func HandleMenuItemList(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureMenuItems)
	if !ok {
		return nil
	}

	var items []models.MenuItem
	if err := database.GetDB().Where("business_id = ?", entCtx.BusinessID).Order("position ASC, id ASC").Find(&items).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load menu")
	}
	return c.JSON(fiber.Map{"items": items})
}

// HandleMenuItemCreate adds a dish or offer to the listing's menu.
func HandleMenuItemCreate(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureMenuItems)
	if !ok {
		return nil
	}

	item := &models.MenuItem{
		BusinessID:  entCtx.BusinessID,
		Name:        strings.TrimSpace(c.FormValue("name")),
		Description: strings.TrimSpace(c.FormValue("description")),
		PriceCents:  formInt64(c, "price_cents"),
		Position:    formInt(c, "position"),
	}
	if v := validateStruct(item); v != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", v.Error())
	}

	if err := database.GetDB().Create(item).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save menu item")
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// HandleMenuItemDelete removes one menu item.
func HandleMenuItemDelete(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureMenuItems)
	if !ok {
		return nil
	}
	return deleteOwnedRow(c, &models.MenuItem{}, entCtx.BusinessID, "Menu item")
}

// --- products ---

// HandleProductList returns the products of an owned listing.
func HandleProductList(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureProducts)
	if !ok {
		return nil
	}

	var products []models.Product
	if err := database.GetDB().Where("business_id = ?", entCtx.BusinessID).Order("id ASC").Find(&products).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load products")
	}
	return c.JSON(fiber.Map{"items": products})
}

// HandleProductCreate adds a product to the listing page.
func HandleProductCreate(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureProducts)
	if !ok {
		return nil
	}

	product := &models.Product{
		BusinessID:  entCtx.BusinessID,
		Name:        strings.TrimSpace(c.FormValue("name")),
		Description: strings.TrimSpace(c.FormValue("description")),
		PriceCents:  formInt64(c, "price_cents"),
		ImageURL:    strings.TrimSpace(c.FormValue("image_url")),
	}
	if v := validateStruct(product); v != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", v.Error())
	}

	if err := database.GetDB().Create(product).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleProductDelete removes one product.
func HandleProductDelete(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureProducts)
	if !ok {
		return nil
	}
	return deleteOwnedRow(c, &models.Product{}, entCtx.BusinessID, "Product")
}

// --- services ---

// HandleServiceList returns the service offerings of an owned listing.
func HandleServiceList(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureServices)
	if !ok {
		return nil
	}

	var services []models.ServiceOffering
	if err := database.GetDB().Where("business_id = ?", entCtx.BusinessID).Order("id ASC").Find(&services).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load services")
	}
	return c.JSON(fiber.Map{"items": services})
}

// HandleServiceCreate adds a bookable service to the listing page.
func HandleServiceCreate(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureServices)
	if !ok {
		return nil
	}

	service := &models.ServiceOffering{
		BusinessID:      entCtx.BusinessID,
		Name:            strings.TrimSpace(c.FormValue("name")),
		Description:     strings.TrimSpace(c.FormValue("description")),
		PriceCents:      formInt64(c, "price_cents"),
		DurationMinutes: formInt(c, "duration_minutes"),
	}
	if v := validateStruct(service); v != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", v.Error())
	}

	if err := database.GetDB().Create(service).Error; err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to save service")
	}
	return c.Status(fiber.StatusCreated).JSON(service)
}

// HandleServiceDelete removes one service offering.
func HandleServiceDelete(c *fiber.Ctx) error {
	entCtx, ok := requireFeature(c, plans.FeatureServices)
	if !ok {
		return nil
	}
	return deleteOwnedRow(c, &models.ServiceOffering{}, entCtx.BusinessID, "Service")
}

// deleteOwnedRow deletes the :itemID row of a listing-scoped table, refusing
// rows that belong to another listing.
func deleteOwnedRow(c *fiber.Ctx, model interface{}, businessID uint, label string) error {
	result := database.GetDB().Where("id = ? AND business_id = ?", paramUint(c, "itemID"), businessID).Delete(model)
	if result.Error != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete")
	}
	if result.RowsAffected == 0 {
		return jsonError(c, fiber.StatusNotFound, "not_found", label+" not found")
	}
	return c.JSON(fiber.Map{"message": label + " deleted"})
}
