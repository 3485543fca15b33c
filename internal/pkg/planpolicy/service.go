package planpolicy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bizdir/app/models"

	"gorm.io/gorm"
)

// Service owns the downgrade policy configuration, the downgrade request
// lifecycle, expiry reconciliation and entitlement resolution.
type Service struct {
	repo    Repository
	billing BillingProvider
	now     func() time.Time
}

// NewService creates a plan policy service from an injected repository and
// billing provider.
func NewService(repo Repository, billing BillingProvider) *Service {
	return &Service{repo: repo, billing: billing, now: time.Now}
}

// NewServiceFromDB creates a plan policy service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, billing BillingProvider) *Service {
	return NewService(NewRepository(db), billing)
}

// DecisionMode returns the configured downgrade decision mode.
func (s *Service) DecisionMode() (string, error) {
	policy, err := s.repo.GetPolicy()
	if err != nil {
		return "", err
	}
	return policy.DecisionMode, nil
}

// SetDecisionMode persists the decision mode, rejecting anything but auto or
// admin_approval.
func (s *Service) SetDecisionMode(mode string) error {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if !models.IsValidDowngradeMode(mode) {
		return fmt.Errorf("invalid decision mode %q", mode)
	}
	policy, err := s.repo.GetPolicy()
	if err != nil {
		return err
	}
	policy.DecisionMode = mode
	return s.repo.SavePolicy(policy)
}

// FallbackPlanID returns the plan expired paid listings are demoted to, or
// nil when the fallback is disabled.
func (s *Service) FallbackPlanID() (*uint, error) {
	policy, err := s.repo.GetPolicy()
	if err != nil {
		return nil, err
	}
	return policy.FallbackPlanID, nil
}

// SetFallbackPlanID persists the fallback plan. Passing nil disables the
// expired-listing fallback entirely; a non-nil id must reference an existing
// plan.
func (s *Service) SetFallbackPlanID(id *uint) error {
	if id != nil {
		if _, err := s.repo.GetPlanByID(*id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: fallback plan %d does not exist", ErrNotFound, *id)
			}
			return err
		}
	}
	policy, err := s.repo.GetPolicy()
	if err != nil {
		return err
	}
	policy.FallbackPlanID = id
	return s.repo.SavePolicy(policy)
}

// CreateDowngradeRequest files an owner's intent to move a listing to the
// target plan. The request is always created pending; in auto mode the caller
// decides it immediately afterwards.
func (s *Service) CreateDowngradeRequest(ownerID uint, ownerEmail string, businessID, targetPlanID uint) (*models.DowngradeRequest, error) {
	if _, err := s.repo.GetOwnedBusiness(ownerID, businessID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: listing %d not found for owner %d", ErrNotFound, businessID, ownerID)
		}
		return nil, err
	}
	plan, err := s.repo.GetPlanByID(targetPlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: target plan %d does not exist", ErrNotFound, targetPlanID)
		}
		return nil, err
	}
	if !plan.IsFree() {
		return nil, fmt.Errorf("%w: only free plans can be requested as downgrade target", ErrConflict)
	}

	req := &models.DowngradeRequest{
		UserID:       ownerID,
		UserEmail:    strings.TrimSpace(ownerEmail),
		BusinessID:   businessID,
		TargetPlanID: targetPlanID,
		Status:       models.DowngradeStatusPending,
	}
	if err := s.repo.CreateDowngradeRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListDowngradeRequests returns requests newest first, optionally filtered by
// status.
func (s *Service) ListDowngradeRequests(status string) ([]models.DowngradeRequest, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" &&
		status != models.DowngradeStatusPending &&
		status != models.DowngradeStatusApproved &&
		status != models.DowngradeStatusRejected {
		return nil, fmt.Errorf("invalid status filter %q", status)
	}
	return s.repo.ListDowngradeRequests(status)
}

// GetDowngradeRequest loads one request by id.
func (s *Service) GetDowngradeRequest(id uint) (*models.DowngradeRequest, error) {
	req, err := s.repo.GetDowngradeRequestByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: downgrade request %d", ErrNotFound, id)
		}
		return nil, err
	}
	return req, nil
}

// DecideDowngradeRequest arbitrates one pending request. Rejections only
// record the decision; approvals first validate ownership and the target
// plan, then cancel the associated billing subscriptions and move the plan
// pointer before recording the decision. A request that is no longer pending
// is a Conflict: the pending -> decided transition happens at most once.
func (s *Service) DecideDowngradeRequest(ctx context.Context, in DecideDowngradeInput) (*models.DowngradeRequest, error) {
	decision := strings.ToLower(strings.TrimSpace(in.Decision))
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, fmt.Errorf("invalid decision %q", in.Decision)
	}

	req, err := s.GetDowngradeRequest(in.RequestID)
	if err != nil {
		return nil, err
	}
	if !req.IsPending() {
		return nil, fmt.Errorf("%w: request %d already %s", ErrConflict, req.ID, req.Status)
	}

	if decision == DecisionReject {
		s.markDecided(req, models.DowngradeStatusRejected, in)
		if err := s.repo.SaveDowngradeRequest(req); err != nil {
			return nil, err
		}
		return req, nil
	}

	business, err := s.repo.GetBusinessByID(req.BusinessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: listing %d no longer exists", ErrConflict, req.BusinessID)
		}
		return nil, err
	}
	// Ownership may have changed since the request was filed.
	if business.UserID != req.UserID {
		return nil, fmt.Errorf("%w: listing %d is no longer owned by requester %d", ErrConflict, business.ID, req.UserID)
	}

	target, err := s.repo.GetPlanByID(req.TargetPlanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: target plan %d no longer exists", ErrConflict, req.TargetPlanID)
		}
		return nil, err
	}
	if !target.IsActive {
		return nil, fmt.Errorf("%w: target plan %q is inactive", ErrConflict, target.Name)
	}
	// Paid-to-paid plan changes go through checkout, never through approval.
	if !target.IsFree() {
		return nil, fmt.Errorf("%w: only free plans are valid downgrade targets", ErrConflict)
	}

	// Already on the target plan: nothing to execute, still record approval.
	if business.PricingPlanID == nil || *business.PricingPlanID != target.ID {
		if _, err := s.ExecutePlanDowngrade(ctx, req.UserID, req.UserEmail, business.ID, business.PricingPlanID, target.ID); err != nil {
			return nil, err
		}
	}

	s.markDecided(req, models.DowngradeStatusApproved, in)
	if err := s.repo.SaveDowngradeRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) markDecided(req *models.DowngradeRequest, status string, in DecideDowngradeInput) {
	now := s.now()
	req.Status = status
	req.DeciderName = strings.TrimSpace(in.DeciderName)
	req.DecidedAt = &now
	if in.DeciderID != 0 {
		deciderID := in.DeciderID
		req.DeciderID = &deciderID
	}
}
