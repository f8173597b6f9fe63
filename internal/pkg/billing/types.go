package billing

// EventType enumerates the entitlement changes a payment provider or an admin
// can drive.
type EventType string

const (
	EventSubscriptionActivated EventType = "subscription_activated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventOneTimeTopUp          EventType = "one_time_top_up"
)

// Event is the provider-agnostic shape the reconciler consumes after webhook
// payloads have been verified and parsed.
type Event struct {
	Type            EventType
	UserID          uint
	Tokens          int64
	Provider        string
	ProviderEventID string
	PayloadJSON     string
	SignatureValid  bool
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// PlanInfo describes one purchasable offer for the plan listing endpoint.
type PlanInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TokenBudget int64  `json:"token_budget"`
	Period      string `json:"period"`
	Description string `json:"description"`
}
