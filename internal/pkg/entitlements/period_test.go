package entitlements

import (
	"testing"
	"time"
)

func TestPeriodKey(t *testing.T) {
	tests := []struct {
		plan Plan
		at   time.Time
		want string
	}{
		{plan: PlanFree, at: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC), want: "2024-W20"},
		{plan: PlanPro, at: time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC), want: "2024-05"},
		// ISO week 1 of 2025 starts in December 2024.
		{plan: PlanFree, at: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), want: "2025-W01"},
		{plan: PlanPro, at: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), want: "2024-12"},
		// January 1st can still belong to the last ISO week of the prior year.
		{plan: PlanFree, at: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), want: "2026-W53"},
	}

	for _, tt := range tests {
		if got := PeriodKey(tt.plan, tt.at); got != tt.want {
			t.Fatalf("PeriodKey(%s, %s) = %q, want %q", tt.plan, tt.at, got, tt.want)
		}
	}
}

func TestPeriodKeyUsesUTC(t *testing.T) {
	// 23:30 on Sunday in UTC+2 is already Monday of the next ISO week locally,
	// but the key must be derived from UTC.
	loc := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2024, 5, 20, 0, 30, 0, 0, loc) // Sunday 22:30 UTC (2024-05-19)
	if got := PeriodKey(PlanFree, local); got != "2024-W20" {
		t.Fatalf("PeriodKey = %q, want 2024-W20", got)
	}
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "pro", want: PlanPro},
		{in: "PRO", want: PlanPro},
		{in: " pro ", want: PlanPro},
		{in: "", want: PlanFree},
		{in: "enterprise", want: PlanFree},
	}
	for _, tt := range tests {
		if got := ParsePlan(tt.in); got != tt.want {
			t.Fatalf("ParsePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		chars int
		want  int64
	}{
		{chars: 0, want: 1},
		{chars: 1, want: 1},
		{chars: 4, want: 1},
		{chars: 6, want: 2},
		{chars: 4000, want: 1000},
		{chars: -10, want: 1},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.chars); got != tt.want {
			t.Fatalf("EstimateTokens(%d) = %d, want %d", tt.chars, got, tt.want)
		}
	}
}
