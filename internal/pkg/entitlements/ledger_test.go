package entitlements

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nativeai/nativechat/internal/pkg/config"
)

type fakeStore struct {
	plans      map[uint]string
	used       map[string]int64
	allowances map[string]int64

	planErr      error
	usedErr      error
	allowanceErr error
	addUsedErr   error

	addUsedCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:      map[uint]string{},
		used:       map[string]int64{},
		allowances: map[string]int64{},
	}
}

func key(userID uint, period string) string {
	return fmt.Sprintf("%d/%s", userID, period)
}

func (f *fakeStore) GetPlan(userID uint) (string, error) {
	if f.planErr != nil {
		return "", f.planErr
	}
	return f.plans[userID], nil
}

func (f *fakeStore) SetPlan(userID uint, plan string) error {
	f.plans[userID] = plan
	return nil
}

func (f *fakeStore) GetUsed(userID uint, period string) (int64, error) {
	if f.usedErr != nil {
		return 0, f.usedErr
	}
	return f.used[key(userID, period)], nil
}

func (f *fakeStore) AddUsed(userID uint, period string, tokens int64) error {
	f.addUsedCalls++
	if f.addUsedErr != nil {
		return f.addUsedErr
	}
	f.used[key(userID, period)] += tokens
	return nil
}

func (f *fakeStore) GetAllowance(userID uint, period string) (int64, error) {
	if f.allowanceErr != nil {
		return 0, f.allowanceErr
	}
	return f.allowances[key(userID, period)], nil
}

func (f *fakeStore) AddAllowance(userID uint, period string, tokens int64) error {
	f.allowances[key(userID, period)] += tokens
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		FreeWeeklyTokenCap: 25000,
		ProMonthlyTokenCap: 500000,
		AdminEmails:        []string{"admin@example.com"},
	}
}

func testLedger(store Store) *Ledger {
	l := NewLedger(store, testConfig())
	l.Now = func() time.Time { return time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) }
	return l
}

func TestCheckQuotaUnderCap(t *testing.T) {
	store := newFakeStore()
	l := testLedger(store)
	store.used[key(1, "2024-W20")] = 24999

	s, err := l.CheckQuota(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Plan != PlanFree || s.Period != "2024-W20" {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", s.Remaining)
	}
}

func TestCheckQuotaAtCapRefuses(t *testing.T) {
	store := newFakeStore()
	l := testLedger(store)
	store.used[key(1, "2024-W20")] = 25000

	s, err := l.CheckQuota(1)
	var qe *QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if qe.Plan != PlanFree || qe.Period != "2024-W20" {
		t.Fatalf("error payload missing plan/period: %+v", qe)
	}
	if s.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", s.Remaining)
	}
}

func TestOverCapRemainingClampsToZero(t *testing.T) {
	// A single turn may push usage past the cap; the next summary clamps.
	store := newFakeStore()
	l := testLedger(store)
	store.used[key(1, "2024-W20")] = 24999

	if _, err := l.CheckQuota(1); err != nil {
		t.Fatalf("pre-flight check failed: %v", err)
	}
	if err := l.Consume(1, "2024-W20", 50); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	s, err := l.CheckQuota(1)
	if err == nil {
		t.Fatalf("expected quota exceeded after overshoot")
	}
	if s.Used != 25049 {
		t.Fatalf("used = %d, want 25049", s.Used)
	}
	if s.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0 (clamped)", s.Remaining)
	}
}

func TestProPlanUsesMonthlyPeriodAndCap(t *testing.T) {
	store := newFakeStore()
	l := testLedger(store)
	store.plans[2] = "pro"

	s, err := l.CheckQuota(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Plan != PlanPro || s.Period != "2024-05" {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Cap != 500000 {
		t.Fatalf("cap = %d, want 500000", s.Cap)
	}
}

func TestAllowanceRaisesEffectiveCap(t *testing.T) {
	store := newFakeStore()
	l := testLedger(store)

	if err := l.GrantAllowance(1, "2024-W20", 250000); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if got := l.GetCap(1, PlanFree, "2024-W20"); got != 275000 {
		t.Fatalf("cap = %d, want 275000", got)
	}
	// Other periods are untouched.
	if got := l.GetCap(1, PlanFree, "2024-W21"); got != 25000 {
		t.Fatalf("cap for next week = %d, want 25000", got)
	}
}

func TestQuotaReadsFailOpen(t *testing.T) {
	store := newFakeStore()
	l := testLedger(store)
	store.planErr = errors.New("store down")
	store.usedErr = errors.New("store down")
	store.allowanceErr = errors.New("store down")

	s, err := l.CheckQuota(1)
	if err != nil {
		t.Fatalf("fail-open check returned error: %v", err)
	}
	if s.Plan != PlanFree || s.Used != 0 || s.Cap != 25000 {
		t.Fatalf("fail-open summary wrong: %+v", s)
	}
}

func TestConsumeErrorIsAdvisory(t *testing.T) {
	store := newFakeStore()
	l := testLedger(store)
	store.addUsedErr = errors.New("write refused")

	err := l.Consume(1, "2024-W20", 42)
	if err == nil {
		t.Fatalf("expected advisory error")
	}
	if store.addUsedCalls != 1 {
		t.Fatalf("expected one write attempt, got %d", store.addUsedCalls)
	}
}

func TestConsumeIgnoresNonPositive(t *testing.T) {
	store := newFakeStore()
	l := testLedger(store)
	if err := l.Consume(1, "2024-W20", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.addUsedCalls != 0 {
		t.Fatalf("expected no write for zero tokens")
	}
}

func TestAdminGate(t *testing.T) {
	store := newFakeStore()
	l := testLedger(store)

	if err := l.AdminSetPlan("user@example.com", 1, PlanPro); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := l.AdminGrantAllowance("", 1, 1000); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for empty email, got %v", err)
	}

	if err := l.AdminSetPlan("admin@example.com", 1, PlanPro); err != nil {
		t.Fatalf("admin set plan failed: %v", err)
	}
	if store.plans[1] != "pro" {
		t.Fatalf("plan = %q, want pro", store.plans[1])
	}

	if err := l.AdminGrantAllowance("Admin@Example.com", 1, 1000); err != nil {
		t.Fatalf("admin grant failed: %v", err)
	}
	// Grant lands in the pro user's current month.
	if got := store.allowances[key(1, "2024-05")]; got != 1000 {
		t.Fatalf("allowance = %d, want 1000", got)
	}
}
