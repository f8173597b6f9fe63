package entitlements

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/nativeai/nativechat/internal/pkg/config"
)

// ErrForbidden is returned when an administrative mutation is attempted by an
// identity whose email is not on the admin allow-list.
var ErrForbidden = errors.New("entitlements: admin allow-list required")

// QuotaExceededError reports that a user's period budget is spent. The plan
// and period are included so callers can explain the refusal.
type QuotaExceededError struct {
	Plan   Plan
	Period string
	Cap    int64
	Used   int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %d/%d tokens used for plan %s in period %s", e.Used, e.Cap, e.Plan, e.Period)
}

// Store is the persistence surface the ledger needs. Implementations must
// serialize concurrent increments (AddUsed/AddAllowance are atomic adds).
type Store interface {
	GetPlan(userID uint) (string, error)
	SetPlan(userID uint, plan string) error
	GetUsed(userID uint, periodKey string) (int64, error)
	AddUsed(userID uint, periodKey string, tokens int64) error
	GetAllowance(userID uint, periodKey string) (int64, error)
	AddAllowance(userID uint, periodKey string, tokens int64) error
}

// Summary is the result of a quota check: the entitlement picture for one
// user at one instant.
type Summary struct {
	Plan      Plan   `json:"plan"`
	Period    string `json:"period"`
	Cap       int64  `json:"cap"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
}

// Ledger tracks per-user token budgets. Reads fail open (a broken store must
// not lock users out), consumption is best-effort (a broken store must not
// retract an already-delivered reply). Enforcement happens only at check
// time, before the costly provider call.
type Ledger struct {
	store Store
	cfg   *config.Config

	// Now is the clock used for period derivation; tests override it.
	Now func() time.Time
}

func NewLedger(store Store, cfg *config.Config) *Ledger {
	return &Ledger{store: store, cfg: cfg, Now: time.Now}
}

// CurrentPeriod returns the accounting window for a plan right now.
func (l *Ledger) CurrentPeriod(plan Plan) string {
	return PeriodKey(plan, l.Now())
}

// GetPlan reads the user's plan, degrading to free on any store failure.
func (l *Ledger) GetPlan(userID uint) Plan {
	stored, err := l.store.GetPlan(userID)
	if err != nil {
		log.Warnf("[Entitlements] plan read failed for user %d, assuming free: %v", userID, err)
		return PlanFree
	}
	return ParsePlan(stored)
}

func (l *Ledger) baseCap(plan Plan) int64 {
	if plan == PlanPro {
		return l.cfg.ProMonthlyTokenCap
	}
	return l.cfg.FreeWeeklyTokenCap
}

// GetCap returns the effective token ceiling for a period: the plan's base
// cap plus any granted allowance. Store failures fall back to the base cap.
func (l *Ledger) GetCap(userID uint, plan Plan, periodKey string) int64 {
	cap := l.baseCap(plan)
	bonus, err := l.store.GetAllowance(userID, periodKey)
	if err != nil {
		log.Warnf("[Entitlements] allowance read failed for user %d period %s, using base cap: %v", userID, periodKey, err)
		return cap
	}
	if bonus > 0 {
		cap += bonus
	}
	if cap < 0 {
		cap = 0
	}
	return cap
}

// GetUsed returns the period's consumed tokens, treating store failures as
// zero usage.
func (l *Ledger) GetUsed(userID uint, periodKey string) int64 {
	used, err := l.store.GetUsed(userID, periodKey)
	if err != nil {
		log.Warnf("[Entitlements] usage read failed for user %d period %s, assuming 0: %v", userID, periodKey, err)
		return 0
	}
	if used < 0 {
		return 0
	}
	return used
}

// CheckQuota computes the entitlement summary for a user and reports
// *QuotaExceededError when the budget is spent. The summary is returned in
// both cases.
func (l *Ledger) CheckQuota(userID uint) (Summary, error) {
	plan := l.GetPlan(userID)
	period := l.CurrentPeriod(plan)
	cap := l.GetCap(userID, plan, period)
	used := l.GetUsed(userID, period)

	remaining := cap - used
	if remaining < 0 {
		remaining = 0
	}
	s := Summary{Plan: plan, Period: period, Cap: cap, Used: used, Remaining: remaining}

	if used >= cap {
		return s, &QuotaExceededError{Plan: plan, Period: period, Cap: cap, Used: used}
	}
	return s, nil
}

// Consume adds tokens to the period counter. The error is advisory: callers
// log it and keep going, because the reply those tokens paid for has already
// been produced.
func (l *Ledger) Consume(userID uint, periodKey string, tokens int64) error {
	if tokens <= 0 {
		return nil
	}
	if err := l.store.AddUsed(userID, periodKey, tokens); err != nil {
		log.Errorf("[Entitlements] consume of %d tokens failed for user %d period %s: %v", tokens, userID, periodKey, err)
		return err
	}
	return nil
}

// SetPlan writes a plan tier. Used by the billing reconciler; admin calls go
// through AdminSetPlan.
func (l *Ledger) SetPlan(userID uint, plan Plan) error {
	return l.store.SetPlan(userID, string(ParsePlan(string(plan))))
}

// GrantAllowance raises the effective cap for one period by adding bonus
// tokens. Used by the billing reconciler for top-up purchases.
func (l *Ledger) GrantAllowance(userID uint, periodKey string, tokens int64) error {
	if tokens <= 0 {
		return errors.New("entitlements: grant requires a positive token amount")
	}
	return l.store.AddAllowance(userID, periodKey, tokens)
}

// AdminSetPlan is SetPlan gated on the acting identity's email being on the
// admin allow-list.
func (l *Ledger) AdminSetPlan(actorEmail string, userID uint, plan Plan) error {
	if !l.cfg.IsAdminEmail(actorEmail) {
		return ErrForbidden
	}
	return l.SetPlan(userID, plan)
}

// AdminGrantAllowance is GrantAllowance gated on the admin allow-list. The
// grant lands in the user's current period.
func (l *Ledger) AdminGrantAllowance(actorEmail string, userID uint, tokens int64) error {
	if !l.cfg.IsAdminEmail(actorEmail) {
		return ErrForbidden
	}
	period := l.CurrentPeriod(l.GetPlan(userID))
	return l.GrantAllowance(userID, period, tokens)
}
