package entitlements

import (
	"strings"
)

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// ParsePlan maps a stored plan value onto a known plan, defaulting to free.
func ParsePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPro):
		return PlanPro
	default:
		return PlanFree
	}
}

// EstimateTokens approximates a token count from a character count when the
// provider does not report usage. Roughly four characters per token, never
// less than one.
func EstimateTokens(chars int) int64 {
	if chars <= 0 {
		return 1
	}
	est := int64((chars + 2) / 4)
	if est < 1 {
		est = 1
	}
	return est
}
