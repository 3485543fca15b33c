package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	DowngradeModeAuto          = "auto"
	DowngradeModeAdminApproval = "admin_approval"
)

// PlanPolicy is the process-wide downgrade policy configuration, persisted as
// a single row. DecisionMode controls whether owner downgrade requests execute
// immediately or wait for an admin; FallbackPlanID is the plan expired paid
// listings are demoted to (nil disables the fallback entirely).
type PlanPolicy struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DecisionMode   string    `gorm:"type:varchar(20);not null;default:'admin_approval'" json:"decision_mode"`
	FallbackPlanID *uint     `json:"fallback_plan_id,omitempty"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsValidDowngradeMode reports whether m is an accepted decision mode.
func IsValidDowngradeMode(m string) bool {
	return m == DowngradeModeAuto || m == DowngradeModeAdminApproval
}

// GetOrCreatePlanPolicy returns the singleton policy row, creating it with
// defaults on first access.
func GetOrCreatePlanPolicy(db *gorm.DB) (*PlanPolicy, error) {
	var policy PlanPolicy
	if err := db.Order("id ASC").First(&policy).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			policy = PlanPolicy{DecisionMode: DowngradeModeAdminApproval}
			if err := db.Create(&policy).Error; err != nil {
				return nil, err
			}
			return &policy, nil
		}
		return nil, err
	}
	return &policy, nil
}
