package models

import "time"

const (
	DowngradeStatusPending  = "pending"
	DowngradeStatusApproved = "approved"
	DowngradeStatusRejected = "rejected"
)

// DowngradeRequest records an owner's intent to move a listing to a lower or
// free plan. Status only ever moves pending -> approved or pending -> rejected,
// exactly once; the decider fields are set on decision and never mutated again.
type DowngradeRequest struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	UserEmail    string     `gorm:"type:varchar(200);not null" json:"user_email"`
	BusinessID   uint       `gorm:"not null;index" json:"business_id"`
	TargetPlanID uint       `gorm:"not null" json:"target_plan_id"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	DeciderID    *uint      `json:"decider_id,omitempty"`
	DeciderName  string     `gorm:"type:varchar(150);default:''" json:"decider_name,omitempty"`
	DecidedAt    *time.Time `gorm:"type:timestamp;default:null" json:"decided_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPending reports whether the request can still be decided.
func (r *DowngradeRequest) IsPending() bool {
	return r.Status == DowngradeStatusPending
}
