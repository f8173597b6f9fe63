package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/nativeai/nativechat/internal/pkg/entitlements"
	"github.com/nativeai/nativechat/internal/pkg/metrics/counter"
	"github.com/nativeai/nativechat/internal/pkg/statistics"
	"github.com/nativeai/nativechat/internal/pkg/usercontext"
)

// HandleAdminSetPlan sets a user's plan tier. The ledger re-checks the acting
// email against the allow-list even though the route is already admin-gated.
func HandleAdminSetPlan(c *fiber.Ctx) error {
	actor := usercontext.GetUserContext(c)

	var req struct {
		UserID uint   `json:"user_id" form:"user_id"`
		Plan   string `json:"plan" form:"plan"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "request body could not be parsed")
	}
	if req.UserID == 0 {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_request", "user_id is required")
	}
	plan := entitlements.ParsePlan(req.Plan)
	if string(plan) != req.Plan {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_request", "plan must be free or pro")
	}

	if err := ledger.AdminSetPlan(actor.Email, req.UserID, plan); err != nil {
		if errors.Is(err, entitlements.ErrForbidden) {
			return jsonError(c, fiber.StatusForbidden, "forbidden", "admin access required")
		}
		fiberlog.Errorf("admin plan change for user %d failed: %v", req.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "plan change failed")
	}
	return c.JSON(fiber.Map{"user_id": req.UserID, "plan": plan})
}

// HandleAdminGrant adds bonus tokens to a user's current period.
func HandleAdminGrant(c *fiber.Ctx) error {
	actor := usercontext.GetUserContext(c)

	var req struct {
		UserID uint  `json:"user_id" form:"user_id"`
		Tokens int64 `json:"tokens" form:"tokens"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "request body could not be parsed")
	}
	if req.UserID == 0 {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_request", "user_id is required")
	}
	if req.Tokens <= 0 {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_request", "tokens must be positive")
	}

	if err := ledger.AdminGrantAllowance(actor.Email, req.UserID, req.Tokens); err != nil {
		if errors.Is(err, entitlements.ErrForbidden) {
			return jsonError(c, fiber.StatusForbidden, "forbidden", "admin access required")
		}
		fiberlog.Errorf("admin grant for user %d failed: %v", req.UserID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "grant failed")
	}
	return c.JSON(fiber.Map{"user_id": req.UserID, "tokens": req.Tokens})
}

// HandleAdminStats returns aggregate service counters plus the recent
// per-day request series.
func HandleAdminStats(c *fiber.Ctx) error {
	statistics.UpdateCacheIfNeeded()
	return c.JSON(fiber.Map{
		"totals":           statistics.GetStatisticsData(),
		"chat_today":       counter.ChatRequestsToday(),
		"transcribe_today": counter.TranscribeRequestsToday(),
		"chat_daily":       counter.ChatRequestsDaily(7),
		"transcribe_daily": counter.TranscribeRequestsDaily(7),
	})
}
