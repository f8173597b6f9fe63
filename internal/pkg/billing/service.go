package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/nativeai/nativechat/app/models"
	"github.com/nativeai/nativechat/internal/pkg/config"
	"github.com/nativeai/nativechat/internal/pkg/entitlements"
)

// Service reconciles payment-provider events into entitlement state. Events
// are recorded idempotently before they are applied, so a replayed webhook
// never double-grants a top-up or re-flips a plan.
type Service struct {
	repo   Repository
	ledger *entitlements.Ledger
	cfg    *config.Config
}

func NewService(repo Repository, ledger *entitlements.Ledger, cfg *config.Config) *Service {
	return &Service{repo: repo, ledger: ledger, cfg: cfg}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, ledger *entitlements.Ledger, cfg *config.Config) *Service {
	return NewService(NewRepository(db), ledger, cfg)
}

// Plans returns the purchasable offer catalog.
func (s *Service) Plans() []PlanInfo {
	return []PlanInfo{
		{
			ID:          string(entitlements.PlanFree),
			Name:        "Free",
			TokenBudget: s.cfg.FreeWeeklyTokenCap,
			Period:      "week",
			Description: "Weekly token budget, resets every ISO week.",
		},
		{
			ID:          string(entitlements.PlanPro),
			Name:        "Pro",
			TokenBudget: s.cfg.ProMonthlyTokenCap,
			Period:      "month",
			Description: "Monthly token budget for heavy use.",
		},
		{
			ID:          "topup",
			Name:        "Token pack",
			TokenBudget: s.cfg.TopUpTokens,
			Period:      "current period",
			Description: "One-time purchase added to the current period's budget.",
		},
	}
}

// ApplyEvent records the event, then applies its entitlement change exactly
// once. Replays (same provider event id) short-circuit after the record step.
func (s *Service) ApplyEvent(ctx context.Context, ev Event) error {
	_ = ctx
	if ev.UserID == 0 {
		return errors.New("billing: event requires a user id")
	}
	if _, err := s.repo.GetUserByID(ev.UserID); err != nil {
		return fmt.Errorf("billing: event for unknown user %d: %w", ev.UserID, err)
	}

	created, stored, err := s.RecordWebhookEvent(WebhookEventInput{
		Provider:        ev.Provider,
		ProviderEventID: ev.ProviderEventID,
		EventType:       string(ev.Type),
		PayloadJSON:     ev.PayloadJSON,
		SignatureValid:  ev.SignatureValid,
	})
	if err != nil {
		return err
	}
	if !created {
		log.Infof("[Billing] replayed event %s/%s ignored", ev.Provider, ev.ProviderEventID)
		return nil
	}

	applyErr := s.apply(ev)
	if stored != nil {
		errMsg := ""
		if applyErr != nil {
			errMsg = applyErr.Error()
		}
		if err := s.repo.MarkWebhookProcessed(stored.ID, errMsg); err != nil {
			log.Warnf("[Billing] marking event %d processed failed: %v", stored.ID, err)
		}
	}
	return applyErr
}

func (s *Service) apply(ev Event) error {
	switch ev.Type {
	case EventSubscriptionActivated:
		return s.ledger.SetPlan(ev.UserID, entitlements.PlanPro)
	case EventSubscriptionCancelled:
		return s.ledger.SetPlan(ev.UserID, entitlements.PlanFree)
	case EventOneTimeTopUp:
		tokens := ev.Tokens
		if tokens <= 0 {
			tokens = s.cfg.TopUpTokens
		}
		period := s.ledger.CurrentPeriod(s.ledger.GetPlan(ev.UserID))
		return s.ledger.GrantAllowance(ev.UserID, period, tokens)
	default:
		return fmt.Errorf("billing: unknown event type %q", ev.Type)
	}
}

// RecordWebhookEvent persists webhook payloads idempotently. Events without a
// provider id are keyed by a payload hash.
func (s *Service) RecordWebhookEvent(in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("billing: provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}
