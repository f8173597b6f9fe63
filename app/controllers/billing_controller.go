package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/nativeai/nativechat/internal/pkg/billing"
	"github.com/nativeai/nativechat/internal/pkg/usercontext"
)

// HandleBillingPlans lists the purchasable offers. Public, no auth needed.
func HandleBillingPlans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"plans": billingService.Plans()})
}

// HandleBillingCheckout starts a checkout flow for the requested offer and
// returns the redirect URL. With the dev instant-grant toggle the
// entitlement change applies immediately instead.
func HandleBillingCheckout(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	var req struct {
		Plan string `json:"plan" form:"plan"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "request body could not be parsed")
	}
	offer := strings.ToLower(strings.TrimSpace(req.Plan))
	if offer != "pro" && offer != "topup" {
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_request", "plan must be pro or topup")
	}

	if appConfig.DevInstantGrant {
		return devInstantGrant(c, user.UserID, offer)
	}

	url, err := stripeGateway.CreateCheckoutSession(user.UserID, offer)
	if err != nil {
		if errors.Is(err, billing.ErrCheckoutNotConfigured) {
			return jsonError(c, fiber.StatusServiceUnavailable, "not_configured", "checkout is not configured")
		}
		fiberlog.Errorf("checkout session for user %d failed: %v", user.UserID, err)
		return jsonError(c, fiber.StatusBadGateway, "provider_error", "checkout session could not be created")
	}
	return c.JSON(fiber.Map{"checkout_url": url})
}

// devInstantGrant applies the purchase without a payment provider round trip.
// Enabled only in dev environments.
func devInstantGrant(c *fiber.Ctx, userID uint, offer string) error {
	ev := billing.Event{
		UserID:          userID,
		Provider:        "dev",
		ProviderEventID: fmt.Sprintf("dev-%s-%d-%s", offer, time.Now().UnixNano(), uuid.NewString()[:8]),
		SignatureValid:  true,
	}
	switch offer {
	case "pro":
		ev.Type = billing.EventSubscriptionActivated
	case "topup":
		ev.Type = billing.EventOneTimeTopUp
	}
	if err := billingService.ApplyEvent(c.UserContext(), ev); err != nil {
		fiberlog.Errorf("dev grant for user %d failed: %v", userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "entitlement grant failed")
	}
	return c.JSON(fiber.Map{"granted": offer})
}

// HandleBillingWebhook receives signed Stripe events and feeds them to the
// reconciler. Unhandled event types are acked so Stripe stops retrying them.
func HandleBillingWebhook(c *fiber.Ctx) error {
	if stripeGateway == nil || !stripeGateway.IsConfigured() {
		return jsonError(c, fiber.StatusServiceUnavailable, "not_configured", "billing webhook is not configured")
	}

	ev, err := stripeGateway.ParseWebhook(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrUnhandledWebhookEvent) {
			return c.JSON(fiber.Map{"received": true})
		}
		fiberlog.Warnf("webhook rejected: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "webhook payload could not be verified")
	}

	if err := billingService.ApplyEvent(c.UserContext(), ev); err != nil {
		fiberlog.Errorf("applying webhook event %s failed: %v", ev.ProviderEventID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "event processing failed")
	}
	return c.JSON(fiber.Map{"received": true})
}
