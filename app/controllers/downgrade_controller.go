package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"bizdir/app/models"
	"bizdir/app/repository"
	"bizdir/internal/pkg/jobqueue"
	"bizdir/internal/pkg/mail"
	"bizdir/internal/pkg/planpolicy"
	"bizdir/internal/pkg/usercontext"
)

// HandleDowngradeRequestCreate files a request to move an owned listing to a
// free plan. In auto mode the request is approved on the spot, which cancels
// any paid subscription backing the listing; in admin approval mode it waits
// in the queue.
func HandleDowngradeRequestCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	businessID := uint(formInt64(c, "business_id"))
	targetPlanID := uint(formInt64(c, "target_plan_id"))
	if businessID == 0 || targetPlanID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "business_id and target_plan_id are required")
	}

	svc := planPolicyService()
	req, err := svc.CreateDowngradeRequest(userCtx.UserID, userCtx.Email, businessID, targetPlanID)
	if err != nil {
		return downgradeError(c, err)
	}

	mode, err := svc.DecisionMode()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to read downgrade policy")
	}

	if mode == models.DowngradeModeAuto {
		req, err = svc.DecideDowngradeRequest(c.Context(), planpolicy.DecideDowngradeInput{
			RequestID:   req.ID,
			Decision:    planpolicy.DecisionApprove,
			DeciderName: "system",
		})
		if err != nil {
			return downgradeError(c, err)
		}
		notifyDowngradeDecision(req)
	}

	status := fiber.StatusCreated
	message := "Downgrade request submitted and awaiting review"
	if req.Status == models.DowngradeStatusApproved {
		message = "Downgrade completed"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"request": req,
	})
}

// HandleUserDowngradeRequests lists the caller's own downgrade requests,
// newest first.
func HandleUserDowngradeRequests(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	all, err := planPolicyService().ListDowngradeRequests(c.Query("status"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	own := make([]models.DowngradeRequest, 0)
	for _, req := range all {
		if req.UserID == userCtx.UserID {
			own = append(own, req)
		}
	}

	return c.JSON(fiber.Map{"items": own})
}

// downgradeError maps plan policy sentinel errors onto status codes.
func downgradeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, planpolicy.ErrNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, planpolicy.ErrConflict):
		return jsonError(c, fiber.StatusConflict, "conflict", err.Error())
	default:
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", err.Error())
	}
}

// notifyDowngradeDecision queues the outcome email for a decided request.
// Best effort: a missing listing or queue failure only logs.
func notifyDowngradeDecision(req *models.DowngradeRequest) {
	factory := repository.GetGlobalFactory()

	user, err := factory.GetUserRepository().GetByID(req.UserID)
	if err != nil {
		log.Errorf("downgrade notification: failed to load user %d: %v", req.UserID, err)
		return
	}
	business, err := factory.GetBusinessRepository().GetByID(req.BusinessID)
	if err != nil {
		log.Errorf("downgrade notification: failed to load listing %d: %v", req.BusinessID, err)
		return
	}
	targetPlan, err := factory.GetPlanRepository().GetByID(req.TargetPlanID)
	if err != nil {
		log.Errorf("downgrade notification: failed to load plan %d: %v", req.TargetPlanID, err)
		return
	}

	body := mail.DowngradeDecisionBody(user.Name, business.Name, targetPlan.Name, req.Status)
	if _, err := jobqueue.GetManager().GetQueue().EnqueueEmail(user.Email, "Your downgrade request", body); err != nil {
		log.Errorf("downgrade notification: failed to enqueue email for %s: %v", user.Email, err)
	}
}
