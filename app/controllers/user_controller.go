package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"bizdir/app/models"
	"bizdir/app/repository"
	"bizdir/internal/pkg/statistics"
	"bizdir/internal/pkg/usercontext"
)

// HandleUserAccount returns account information for the authenticated user.
func HandleUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	businesses, err := repository.GetGlobalFactory().GetBusinessRepository().GetByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listings")
	}

	var totalViews uint64
	for i := range businesses {
		totalViews += businesses[i].ViewCount
	}

	return c.JSON(fiber.Map{
		"id":            account.ID,
		"username":      account.Name,
		"email":         account.Email,
		"status":        account.Status,
		"is_admin":      account.Role == models.ROLE_ADMIN,
		"created_at":    account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at": formatTimePtr(account.LastLoginAt),
		"stats": fiber.Map{
			"listings":    len(businesses),
			"total_views": totalViews,
		},
	})
}

// HandleUserBusinesses lists the caller's own listings, whatever their
// moderation status.
func HandleUserBusinesses(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	// Demote any expired listing before the owner sees its plan.
	if _, err := planPolicyService().ReconcileOwner(userCtx.UserID); err != nil {
		log.Errorf("plan reconciliation failed for owner %d: %v", userCtx.UserID, err)
	}

	businesses, err := repository.GetGlobalFactory().GetBusinessRepository().GetByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listings")
	}

	items := make([]fiber.Map, 0, len(businesses))
	for i := range businesses {
		b := &businesses[i]
		item := businessSummaryJSON(b)
		item["status"] = b.Status
		item["view_count"] = b.ViewCount
		item["like_count"] = b.LikeCount
		item["contact_click_count"] = b.ContactClickCount
		if b.PricingPlanID != nil {
			item["pricing_plan_id"] = *b.PricingPlanID
		}
		items = append(items, item)
	}

	return c.JSON(fiber.Map{"items": items})
}

// HandleUserBusinessCreate submits a new listing. It enters the moderation
// queue as pending unless auto approval is switched on.
func HandleUserBusinessCreate(c *fiber.Ctx) error {
	appSettings := models.GetAppSettings()
	if !appSettings.AreSubmissionsEnabled() {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "New submissions are currently disabled")
	}

	userCtx := usercontext.GetUserContext(c)

	business := &models.Business{
		UserID:      userCtx.UserID,
		Name:        strings.TrimSpace(c.FormValue("name")),
		Description: strings.TrimSpace(c.FormValue("description")),
		Category:    strings.TrimSpace(c.FormValue("category")),
		City:        strings.TrimSpace(c.FormValue("city")),
		Address:     strings.TrimSpace(c.FormValue("address")),
		Phone:       strings.TrimSpace(c.FormValue("phone")),
		Website:     strings.TrimSpace(c.FormValue("website")),
		Status:      models.BusinessStatusPending,
	}
	if appSettings.IsAutoApproveEnabled() {
		business.Status = models.BusinessStatusApproved
	}

	if err := applyContactForm(c, business); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := business.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	if err := repository.GetGlobalFactory().GetBusinessRepository().Create(business); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create listing")
	}

	go statistics.UpdateStatisticsCache()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Listing submitted",
		"id":      business.ID,
		"slug":    business.Slug,
		"status":  business.Status,
	})
}

// HandleUserBusinessUpdate edits an owned listing. Fields that are absent in
// the form keep their value; the slug never changes after creation.
func HandleUserBusinessUpdate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	business, err := repository.GetGlobalFactory().GetBusinessRepository().GetOwned(userCtx.UserID, paramUint(c, "id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listing")
	}

	setIfPresent(c, "name", &business.Name)
	setIfPresent(c, "description", &business.Description)
	setIfPresent(c, "category", &business.Category)
	setIfPresent(c, "city", &business.City)
	setIfPresent(c, "address", &business.Address)
	setIfPresent(c, "phone", &business.Phone)
	setIfPresent(c, "website", &business.Website)

	if err := applyContactForm(c, business); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := business.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	if err := repository.GetGlobalFactory().GetBusinessRepository().Update(business); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update listing")
	}

	return c.JSON(fiber.Map{"message": "Listing updated"})
}

// HandleUserBusinessDelete removes an owned listing and everything attached
// to it.
func HandleUserBusinessDelete(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	business, err := repository.GetGlobalFactory().GetBusinessRepository().GetOwned(userCtx.UserID, paramUint(c, "id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listing")
	}

	if err := repository.GetGlobalFactory().GetBusinessRepository().Delete(business.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete listing")
	}

	go statistics.UpdateStatisticsCache()

	return c.JSON(fiber.Map{"message": "Listing deleted"})
}

// applyContactForm merges submitted contact fields into the listing's contact
// blob, leaving untouched fields alone.
func applyContactForm(c *fiber.Ctx, business *models.Business) error {
	contact := business.Contact()
	changed := false
	for form, target := range map[string]*string{
		"contact_email":     &contact.Email,
		"contact_whatsapp":  &contact.WhatsApp,
		"contact_facebook":  &contact.Facebook,
		"contact_instagram": &contact.Instagram,
	} {
		if v := c.FormValue(form, "\x00"); v != "\x00" {
			*target = strings.TrimSpace(v)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return business.SetContact(contact)
}

// setIfPresent overwrites target only when the form field was submitted.
func setIfPresent(c *fiber.Ctx, field string, target *string) {
	if v := c.FormValue(field, "\x00"); v != "\x00" {
		*target = strings.TrimSpace(v)
	}
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
