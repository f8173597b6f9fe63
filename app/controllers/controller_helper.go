package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nativeai/nativechat/internal/pkg/attachments"
	"github.com/nativeai/nativechat/internal/pkg/billing"
	"github.com/nativeai/nativechat/internal/pkg/config"
	"github.com/nativeai/nativechat/internal/pkg/entitlements"
	"github.com/nativeai/nativechat/internal/pkg/llm"
)

// Shared service instances, wired once at startup via Setup.
var (
	appConfig      *config.Config
	ledger         *entitlements.Ledger
	llmClient      *llm.Client
	billingService *billing.Service
	stripeGateway  *billing.StripeGateway
	attachStore    *attachments.Store
)

// Setup wires the controller package with its service dependencies.
// Must run before any handler is registered.
func Setup(cfg *config.Config, l *entitlements.Ledger, client *llm.Client, svc *billing.Service, gateway *billing.StripeGateway, store *attachments.Store) {
	appConfig = cfg
	ledger = l
	llmClient = client
	billingService = svc
	stripeGateway = gateway
	attachStore = store
}

// checkQuota runs the pre-call quota gate and writes the 402 refusal itself.
// The bool reports whether the caller may proceed.
func checkQuota(c *fiber.Ctx, userID uint) (entitlements.Summary, bool, error) {
	summary, err := ledger.CheckQuota(userID)
	if err == nil {
		return summary, true, nil
	}
	var quotaErr *entitlements.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return summary, false, c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":   "quota_exceeded",
			"message": fmt.Sprintf("token budget exhausted for plan %s in period %s", quotaErr.Plan, quotaErr.Period),
			"plan":    quotaErr.Plan,
			"period":  quotaErr.Period,
			"cap":     quotaErr.Cap,
			"used":    quotaErr.Used,
		})
	}
	return summary, false, jsonError(c, fiber.StatusInternalServerError, "internal_error", "quota check failed")
}

// jsonError writes the uniform error envelope.
func jsonError(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   kind,
		"message": message,
	})
}

// requestContext derives a deadline context from the request.
func requestContext(c *fiber.Ctx, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), d)
}

// parseBoolField interprets the truthy multipart form flags.
func parseBoolField(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
