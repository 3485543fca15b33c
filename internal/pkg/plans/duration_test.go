package plans

import (
	"testing"
	"time"
)

func TestDurationDays(t *testing.T) {
	tests := []struct {
		period string
		days   int
		want   int
	}{
		{period: "", days: 0, want: 0},
		{period: PeriodYearly, days: 0, want: 365},
		{period: PeriodMonthly, days: 0, want: 30},
		{period: PeriodMonthly, days: 45, want: 45}, // explicit wins over period
		{period: "", days: 10, want: 10},
		{period: PeriodYearly, days: -3, want: 365}, // non-positive explicit ignored
	}

	for _, tt := range tests {
		if got := DurationDays(tt.period, tt.days); got != tt.want {
			t.Fatalf("DurationDays(%q, %d) = %d, want %d", tt.period, tt.days, got, tt.want)
		}
	}
}

func TestExpiryDate(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	got := ExpiryDate(start, PeriodMonthly, 0)
	if want := start.AddDate(0, 0, 30); !got.Equal(want) {
		t.Fatalf("monthly expiry = %v, want %v", got, want)
	}

	got = ExpiryDate(start, "", 45)
	if want := start.AddDate(0, 0, 45); !got.Equal(want) {
		t.Fatalf("explicit expiry = %v, want %v", got, want)
	}

	// Zero duration returns start unchanged, it is never "already expired"
	// by itself.
	got = ExpiryDate(start, "", 0)
	if !got.Equal(start) {
		t.Fatalf("zero duration expiry = %v, want start %v", got, start)
	}
}

func TestPeriodFromDays(t *testing.T) {
	if got := PeriodFromDays(365); got != PeriodYearly {
		t.Fatalf("PeriodFromDays(365) = %q", got)
	}
	if got := PeriodFromDays(400); got != PeriodYearly {
		t.Fatalf("PeriodFromDays(400) = %q", got)
	}
	if got := PeriodFromDays(364); got != PeriodMonthly {
		t.Fatalf("PeriodFromDays(364) = %q", got)
	}
	if got := PeriodFromDays(0); got != PeriodMonthly {
		t.Fatalf("PeriodFromDays(0) = %q", got)
	}
}
