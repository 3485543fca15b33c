package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"bizdir/app/models"
	"bizdir/app/repository"
	"bizdir/internal/pkg/plans"
	"bizdir/internal/pkg/planpolicy"
)

// HandleAdminPlans lists every plan, inactive ones included.
func HandleAdminPlans(c *fiber.Ctx) error {
	all, err := repository.GetGlobalFactory().GetPlanRepository().GetAll(true)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load plans")
	}

	items := make([]fiber.Map, 0, len(all))
	for i := range all {
		items = append(items, planJSON(&all[i]))
	}
	return c.JSON(fiber.Map{"items": items})
}

// HandleAdminPlanCreate creates a new plan tier. Submitted feature names are
// folded into canonical keys before they are stored.
func HandleAdminPlanCreate(c *fiber.Ctx) error {
	plan := &models.PricingPlan{
		Name:          strings.TrimSpace(c.FormValue("name")),
		Description:   strings.TrimSpace(c.FormValue("description")),
		PriceCents:    formInt64(c, "price_cents"),
		BillingPeriod: strings.TrimSpace(c.FormValue("billing_period", models.BillingPeriodMonthly)),
		DurationDays:  formInt(c, "duration_days"),
		GalleryLimit:  formInt(c, "gallery_limit"),
		StripePriceID: strings.TrimSpace(c.FormValue("stripe_price_id")),
		IsActive:      c.FormValue("is_active", "true") != "false",
	}
	if err := applyPlanFeatures(c, plan); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := validateStruct(plan); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	if err := repository.GetGlobalFactory().GetPlanRepository().Create(plan); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create plan")
	}
	return c.Status(fiber.StatusCreated).JSON(planJSON(plan))
}

// HandleAdminPlanUpdate edits an existing plan tier.
func HandleAdminPlanUpdate(c *fiber.Ctx) error {
	planRepo := repository.GetGlobalFactory().GetPlanRepository()
	plan, err := planRepo.GetByID(paramUint(c, "id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Plan not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load plan")
	}

	setIfPresent(c, "name", &plan.Name)
	setIfPresent(c, "description", &plan.Description)
	setIfPresent(c, "billing_period", &plan.BillingPeriod)
	setIfPresent(c, "stripe_price_id", &plan.StripePriceID)
	if v := c.FormValue("price_cents"); v != "" {
		plan.PriceCents = formInt64(c, "price_cents")
	}
	if v := c.FormValue("duration_days"); v != "" {
		plan.DurationDays = formInt(c, "duration_days")
	}
	if v := c.FormValue("gallery_limit"); v != "" {
		plan.GalleryLimit = formInt(c, "gallery_limit")
	}
	if v := c.FormValue("is_active"); v != "" {
		plan.IsActive = v == "true"
	}
	if err := applyPlanFeatures(c, plan); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := validateStruct(plan); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	if err := planRepo.Update(plan); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update plan")
	}
	return c.JSON(planJSON(plan))
}

// HandleAdminPlanDelete soft-deletes a plan. A plan that still backs listings
// is deactivated instead so those listings keep a resolvable reference.
func HandleAdminPlanDelete(c *fiber.Ctx) error {
	planRepo := repository.GetGlobalFactory().GetPlanRepository()
	plan, err := planRepo.GetByID(paramUint(c, "id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Plan not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load plan")
	}

	inUse, err := planRepo.CountBusinessesOnPlan(plan.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check plan usage")
	}
	if inUse > 0 {
		plan.IsActive = false
		if err := planRepo.Update(plan); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to deactivate plan")
		}
		return c.JSON(fiber.Map{"message": "Plan is referenced by listings and was deactivated instead of deleted"})
	}

	if err := planRepo.Delete(plan.ID); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete plan")
	}
	return c.JSON(fiber.Map{"message": "Plan deleted"})
}

// HandleAdminPolicyGet returns the downgrade policy configuration.
func HandleAdminPolicyGet(c *fiber.Ctx) error {
	svc := planPolicyService()
	mode, err := svc.DecisionMode()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load policy")
	}
	fallbackID, err := svc.FallbackPlanID()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load policy")
	}

	payload := fiber.Map{"decision_mode": mode}
	if fallbackID != nil {
		payload["fallback_plan_id"] = *fallbackID
	}
	return c.JSON(payload)
}

// HandleAdminPolicySave updates the downgrade decision mode and the fallback
// plan for expired paid listings. Submitting fallback_plan_id=0 disables the
// fallback.
func HandleAdminPolicySave(c *fiber.Ctx) error {
	svc := planPolicyService()

	if mode := strings.TrimSpace(c.FormValue("decision_mode")); mode != "" {
		if err := svc.SetDecisionMode(mode); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
		}
	}

	if raw := c.FormValue("fallback_plan_id"); raw != "" {
		var id *uint
		if v := formInt64(c, "fallback_plan_id"); v > 0 {
			u := uint(v)
			id = &u
		}
		if err := svc.SetFallbackPlanID(id); err != nil {
			if errors.Is(err, planpolicy.ErrNotFound) {
				return jsonError(c, fiber.StatusNotFound, "not_found", err.Error())
			}
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", err.Error())
		}
	}

	return c.JSON(fiber.Map{"message": "Policy saved"})
}

// applyPlanFeatures reads the repeated features form field and stores the
// normalized keys on the plan.
func applyPlanFeatures(c *fiber.Ctx, plan *models.PricingPlan) error {
	raw := c.FormValue("features", "\x00")
	if raw == "\x00" {
		return nil
	}
	parts := strings.Split(raw, ",")
	return plan.SetFeatureList(plans.NormalizeFeatures(parts))
}

func planJSON(p *models.PricingPlan) fiber.Map {
	return fiber.Map{
		"id":              p.ID,
		"name":            p.Name,
		"description":     p.Description,
		"price_cents":     p.PriceCents,
		"billing_period":  p.BillingPeriod,
		"duration_days":   p.DurationDays,
		"gallery_limit":   p.GalleryLimit,
		"stripe_price_id": p.StripePriceID,
		"is_active":       p.IsActive,
		"is_free":         p.IsFree(),
		"features":        plans.NormalizeFeatures(p.FeatureList()),
	}
}
