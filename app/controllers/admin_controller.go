package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"bizdir/app/models"
	"bizdir/app/repository"
	"bizdir/internal/pkg/jobqueue"
	"bizdir/internal/pkg/mail"
	"bizdir/internal/pkg/statistics"
)

// HandleAdminDashboard returns the operational overview: directory counters
// and the moderation backlog.
func HandleAdminDashboard(c *fiber.Ctx) error {
	stats := statistics.GetStatisticsData()

	factory := repository.GetGlobalFactory()
	pending, err := factory.GetBusinessRepository().CountByStatus(models.BusinessStatusPending)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count pending listings")
	}

	pendingDowngrades, err := planPolicyService().ListDowngradeRequests(models.DowngradeStatusPending)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load downgrade queue")
	}

	return c.JSON(fiber.Map{
		"total_businesses":   stats.TotalBusinesses,
		"today_businesses":   stats.TodayBusinesses,
		"total_users":        stats.TotalUsers,
		"pending_listings":   pending,
		"pending_downgrades": len(pendingDowngrades),
		"queue_running":      jobqueue.GetManager().IsRunning(),
	})
}

// HandleAdminUsers lists accounts with their listing statistics.
func HandleAdminUsers(c *fiber.Ctx) error {
	offset, limit := pagination(c)

	users, err := repository.GetGlobalFactory().GetUserRepository().GetWithStats(offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load users")
	}
	total, err := repository.GetGlobalFactory().GetUserRepository().Count()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count users")
	}

	items := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		items = append(items, fiber.Map{
			"id":             u.User.ID,
			"username":       u.User.Name,
			"email":          u.User.Email,
			"role":           u.User.Role,
			"status":         u.User.Status,
			"business_count": u.BusinessCount,
			"total_views":    u.TotalViews,
			"created_at":     u.User.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"items": items, "total": total})
}

// HandleAdminUserUpdate changes an account's role or status.
func HandleAdminUserUpdate(c *fiber.Ctx) error {
	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByID(paramUint(c, "id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}

	if role := strings.TrimSpace(c.FormValue("role")); role != "" {
		if role != models.ROLE_USER && role != models.ROLE_ADMIN {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid role")
		}
		user.Role = role
	}
	if status := strings.TrimSpace(c.FormValue("status")); status != "" {
		if status != models.STATUS_ACTIVE && status != models.STATUS_INACTIVE && status != models.STATUS_DISABLED {
			return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid status")
		}
		user.Status = status
	}

	if err := userRepo.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update user")
	}

	return c.JSON(fiber.Map{"message": "User updated"})
}

// HandleAdminModerationQueue lists pending listings, oldest first, so the
// queue is worked in submission order.
func HandleAdminModerationQueue(c *fiber.Ctx) error {
	offset, limit := pagination(c)

	businesses, err := repository.GetGlobalFactory().GetBusinessRepository().ListByStatus(models.BusinessStatusPending, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load queue")
	}

	items := make([]fiber.Map, 0, len(businesses))
	for i := range businesses {
		b := &businesses[i]
		item := businessSummaryJSON(b)
		item["description"] = b.Description
		item["user_id"] = b.UserID
		item["created_at"] = b.CreatedAt
		items = append(items, item)
	}

	return c.JSON(fiber.Map{"items": items})
}

// HandleAdminListingDecision approves or rejects a pending listing and
// notifies the owner by email.
func HandleAdminListingDecision(c *fiber.Ctx) error {
	decision := strings.ToLower(strings.TrimSpace(c.FormValue("decision")))
	var status string
	switch decision {
	case "approve":
		status = models.BusinessStatusApproved
	case "reject":
		status = models.BusinessStatusRejected
	default:
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "decision must be approve or reject")
	}

	factory := repository.GetGlobalFactory()
	business, err := factory.GetBusinessRepository().GetByID(paramUint(c, "id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load listing")
	}

	if err := factory.GetBusinessRepository().SetStatus(business.ID, status); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update listing")
	}

	go statistics.UpdateStatisticsCache()

	if owner, err := factory.GetUserRepository().GetByID(business.UserID); err == nil {
		body := mail.ListingStatusBody(owner.Name, business.Name, status)
		if _, err := jobqueue.GetManager().GetQueue().EnqueueEmail(owner.Email, "Your listing was reviewed", body); err != nil {
			log.Errorf("failed to enqueue moderation email for %s: %v", owner.Email, err)
		}
	}

	return c.JSON(fiber.Map{"message": "Listing " + status})
}

// HandleAdminListingFeature toggles the featured flag on a listing.
func HandleAdminListingFeature(c *fiber.Ctx) error {
	featured := c.FormValue("featured") == "true"

	if err := repository.GetGlobalFactory().GetBusinessRepository().SetFeatured(paramUint(c, "id"), featured); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Listing not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update listing")
	}

	return c.JSON(fiber.Map{"message": "Listing updated"})
}

// HandleAdminSettingsGet returns the editable application settings.
func HandleAdminSettingsGet(c *fiber.Ctx) error {
	settings := models.GetAppSettings()
	return c.JSON(fiber.Map{
		"site_title":             settings.SiteTitle,
		"site_description":       settings.SiteDescription,
		"submissions_enabled":    settings.SubmissionsEnabled,
		"auto_approve_listing":   settings.AutoApproveListing,
		"job_queue_worker_count": settings.GetJobQueueWorkerCount(),
	})
}

// HandleAdminSettingsSave persists the application settings.
func HandleAdminSettingsSave(c *fiber.Ctx) error {
	current := models.GetAppSettings()

	updated := &models.AppSettings{
		SiteTitle:           current.SiteTitle,
		SiteDescription:     current.SiteDescription,
		SubmissionsEnabled:  current.SubmissionsEnabled,
		AutoApproveListing:  current.AutoApproveListing,
		JobQueueWorkerCount: current.GetJobQueueWorkerCount(),
	}

	setIfPresent(c, "site_title", &updated.SiteTitle)
	setIfPresent(c, "site_description", &updated.SiteDescription)
	if v := c.FormValue("submissions_enabled"); v != "" {
		updated.SubmissionsEnabled = v == "true"
	}
	if v := c.FormValue("auto_approve_listing"); v != "" {
		updated.AutoApproveListing = v == "true"
	}
	if v := formInt(c, "job_queue_worker_count"); v > 0 {
		updated.JobQueueWorkerCount = v
	}

	if err := repository.GetGlobalFactory().GetSettingRepository().Save(updated); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	return c.JSON(fiber.Map{"message": "Settings saved"})
}

// HandleAdminExpirySweep queues a plan expiry sweep on demand.
func HandleAdminExpirySweep(c *fiber.Ctx) error {
	job, err := jobqueue.GetManager().RunExpirySweepOnce()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to enqueue sweep")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Sweep queued", "job_id": job.ID})
}
