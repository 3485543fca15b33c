package controllers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"bizdir/app/models"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2026, 3, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}

func TestMetaID(t *testing.T) {
	meta := map[string]string{"business_id": "42", "plan_id": "abc"}
	assert.Equal(t, uint(42), metaID(meta, "business_id"))
	assert.Equal(t, uint(0), metaID(meta, "plan_id"))
	assert.Equal(t, uint(0), metaID(meta, "missing"))
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, isDuplicateKeyError(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKeyError(errors.New("Error 1062: Duplicate entry 'evt_1' for key 'ux_billing_events_provider_event'")))
	assert.True(t, isDuplicateKeyError(errors.New("UNIQUE constraint failed: billing_events.provider_event_id")))
	assert.False(t, isDuplicateKeyError(errors.New("connection refused")))
}

func TestPlanJSONMarksFreePlans(t *testing.T) {
	free := &models.PricingPlan{Name: "Starter", PriceCents: 0, IsActive: true}
	paid := &models.PricingPlan{Name: "Pro", PriceCents: 1999, IsActive: true}

	assert.Equal(t, true, planJSON(free)["is_free"])
	assert.Equal(t, false, planJSON(paid)["is_free"])
}
