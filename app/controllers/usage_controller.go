package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nativeai/nativechat/internal/pkg/usercontext"
)

// HandleUsage reports the caller's entitlement picture for the current
// period. An exhausted budget is still a 200 here; only metered calls get
// the 402 refusal.
func HandleUsage(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	summary, _ := ledger.CheckQuota(user.UserID)
	return c.JSON(summary)
}
