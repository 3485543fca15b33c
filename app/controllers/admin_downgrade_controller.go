package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"bizdir/internal/pkg/planpolicy"
	"bizdir/internal/pkg/usercontext"
)

// HandleAdminDowngradeRequests lists downgrade requests, optionally filtered
// by status via the status query parameter.
func HandleAdminDowngradeRequests(c *fiber.Ctx) error {
	requests, err := planPolicyService().ListDowngradeRequests(c.Query("status"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	return c.JSON(fiber.Map{"items": requests})
}

// HandleAdminDowngradeDecide approves or rejects one pending request. An
// approval cancels the paid subscriptions backing the listing and moves it to
// the requested free plan; either outcome is final and emailed to the owner.
func HandleAdminDowngradeDecide(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	decision := strings.ToLower(strings.TrimSpace(c.FormValue("decision")))
	if decision != planpolicy.DecisionApprove && decision != planpolicy.DecisionReject {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "decision must be approve or reject")
	}

	req, err := planPolicyService().DecideDowngradeRequest(c.Context(), planpolicy.DecideDowngradeInput{
		RequestID:   paramUint(c, "id"),
		Decision:    decision,
		DeciderID:   userCtx.UserID,
		DeciderName: userCtx.Username,
	})
	if err != nil {
		return downgradeError(c, err)
	}

	notifyDowngradeDecision(req)

	return c.JSON(fiber.Map{
		"message": "Request " + req.Status,
		"request": req,
	})
}
