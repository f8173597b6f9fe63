package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v72"
	stripeclient "github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"

	"github.com/nativeai/nativechat/internal/pkg/config"
)

// ErrCheckoutNotConfigured is returned when Stripe credentials or price ids
// are missing for the requested offer.
var ErrCheckoutNotConfigured = errors.New("billing: checkout is not configured")

// ErrUnhandledWebhookEvent marks event types the reconciler does not act on.
var ErrUnhandledWebhookEvent = errors.New("billing: unhandled webhook event type")

// StripeGateway wraps the Stripe API for checkout creation and webhook
// verification.
type StripeGateway struct {
	api           *stripeclient.API
	webhookSecret string
	cfg           *config.Config
}

func NewStripeGateway(cfg *config.Config) *StripeGateway {
	api := &stripeclient.API{}
	if cfg.StripeSecretKey != "" {
		api.Init(cfg.StripeSecretKey, nil)
	}
	return &StripeGateway{api: api, webhookSecret: cfg.StripeWebhookSecret, cfg: cfg}
}

// IsConfigured reports whether checkout can be started at all.
func (g *StripeGateway) IsConfigured() bool {
	return g.cfg.StripeSecretKey != ""
}

// CreateCheckoutSession starts a Stripe Checkout flow for the "pro"
// subscription or the one-time "topup" pack and returns the redirect URL.
// The local user id rides along as the client reference so the webhook can
// attribute the purchase.
func (g *StripeGateway) CreateCheckoutSession(userID uint, offer string) (string, error) {
	if !g.IsConfigured() {
		return "", ErrCheckoutNotConfigured
	}

	var priceID, mode string
	switch offer {
	case "pro":
		priceID = g.cfg.StripeProPriceID
		mode = string(stripe.CheckoutSessionModeSubscription)
	case "topup":
		priceID = g.cfg.StripeTopUpPriceID
		mode = string(stripe.CheckoutSessionModePayment)
	default:
		return "", fmt.Errorf("billing: unknown offer %q", offer)
	}
	if priceID == "" {
		return "", ErrCheckoutNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(mode),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(g.cfg.CheckoutSuccessURL),
		CancelURL:         stripe.String(g.cfg.CheckoutCancelURL),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(userID), 10)),
	}
	if mode == string(stripe.CheckoutSessionModeSubscription) {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{}
		params.SubscriptionData.AddMetadata("user_id", strconv.FormatUint(uint64(userID), 10))
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// ParseWebhook verifies the Stripe signature and maps the payload onto a
// reconciler Event. ErrUnhandledWebhookEvent means the type is fine to ack
// and ignore.
func (g *StripeGateway) ParseWebhook(payload []byte, signatureHeader string) (Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
	if err != nil {
		return Event{}, err
	}
	return mapStripeEvent(stripeEvent)
}

func mapStripeEvent(stripeEvent stripe.Event) (Event, error) {
	base := Event{
		Provider:        "stripe",
		ProviderEventID: stripeEvent.ID,
		PayloadJSON:     string(stripeEvent.Data.Raw),
		SignatureValid:  true,
	}

	switch stripeEvent.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(stripeEvent.Data.Raw, &cs); err != nil {
			return Event{}, err
		}
		userID, err := parseUserRef(cs.ClientReferenceID)
		if err != nil {
			return Event{}, err
		}
		base.UserID = userID
		if cs.Mode == stripe.CheckoutSessionModePayment {
			base.Type = EventOneTimeTopUp
		} else {
			base.Type = EventSubscriptionActivated
		}
		return base, nil

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(stripeEvent.Data.Raw, &sub); err != nil {
			return Event{}, err
		}
		userID, err := parseUserRef(sub.Metadata["user_id"])
		if err != nil {
			return Event{}, err
		}
		base.UserID = userID
		base.Type = EventSubscriptionCancelled
		return base, nil

	default:
		return Event{}, ErrUnhandledWebhookEvent
	}
}

func parseUserRef(ref string) (uint, error) {
	if ref == "" {
		return 0, errors.New("billing: event carries no user reference")
	}
	id, err := strconv.ParseUint(ref, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("billing: invalid user reference %q", ref)
	}
	return uint(id), nil
}
