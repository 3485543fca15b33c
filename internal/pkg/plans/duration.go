package plans

import "time"

// Billing periods as stored on pricing plans.
const (
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// Entitlement window lengths in days when a plan only specifies its billing
// period. An explicit duration on the plan always wins over these.
const (
	daysPerMonth = 30
	daysPerYear  = 365
)

// DurationDays computes a plan's entitlement window length. An explicit
// positive duration wins; otherwise the billing period decides; an empty
// period means no window at all.
func DurationDays(period string, explicitDays int) int {
	if explicitDays > 0 {
		return explicitDays
	}
	switch period {
	case PeriodYearly:
		return daysPerYear
	case PeriodMonthly:
		return daysPerMonth
	default:
		return 0
	}
}

// ExpiryDate returns start plus the plan's entitlement window in calendar
// days. A zero-length window returns start unchanged; callers decide what
// that means, this function alone never declares anything expired.
func ExpiryDate(start time.Time, period string, explicitDays int) time.Time {
	days := DurationDays(period, explicitDays)
	if days == 0 {
		return start
	}
	return start.AddDate(0, 0, days)
}

// PeriodFromDays classifies a known duration as a billing period: a year or
// longer is yearly, everything else monthly.
func PeriodFromDays(explicitDays int) string {
	if explicitDays >= daysPerYear {
		return PeriodYearly
	}
	return PeriodMonthly
}
