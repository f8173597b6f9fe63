package billing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v72"
	"gorm.io/gorm"

	"github.com/nativeai/nativechat/app/models"
	"github.com/nativeai/nativechat/internal/pkg/config"
	"github.com/nativeai/nativechat/internal/pkg/entitlements"
)

type fakeRepo struct {
	events    map[string]*models.BillingWebhookEvent
	nextID    uint
	processed map[uint]string
	missing   map[uint]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		events:    map[string]*models.BillingWebhookEvent{},
		processed: map[uint]string{},
		missing:   map[uint]bool{},
	}
}

func (f *fakeRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if existing, ok := f.events[key]; ok {
		return false, existing, nil
	}
	f.nextID++
	event.ID = f.nextID
	f.events[key] = event
	return true, event, nil
}

func (f *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	f.processed[id] = processingError
	return nil
}

func (f *fakeRepo) GetUserByID(id uint) (*models.User, error) {
	if f.missing[id] {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.User{ID: id}, nil
}

type memStore struct {
	plans      map[uint]string
	used       map[string]int64
	allowances map[string]int64
}

func newMemStore() *memStore {
	return &memStore{plans: map[uint]string{}, used: map[string]int64{}, allowances: map[string]int64{}}
}

func (m *memStore) GetPlan(userID uint) (string, error)  { return m.plans[userID], nil }
func (m *memStore) SetPlan(userID uint, p string) error  { m.plans[userID] = p; return nil }
func (m *memStore) GetUsed(u uint, p string) (int64, error) {
	return m.used[p], nil
}
func (m *memStore) AddUsed(u uint, p string, t int64) error { m.used[p] += t; return nil }
func (m *memStore) GetAllowance(u uint, p string) (int64, error) {
	return m.allowances[p], nil
}
func (m *memStore) AddAllowance(u uint, p string, t int64) error {
	m.allowances[p] += t
	return nil
}

func testService() (*Service, *fakeRepo, *memStore) {
	cfg := &config.Config{
		FreeWeeklyTokenCap: 25000,
		ProMonthlyTokenCap: 500000,
		TopUpTokens:        250000,
	}
	store := newMemStore()
	ledger := entitlements.NewLedger(store, cfg)
	ledger.Now = func() time.Time { return time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) }
	repo := newFakeRepo()
	return NewService(repo, ledger, cfg), repo, store
}

func TestApplyEventSubscriptionLifecycle(t *testing.T) {
	svc, _, store := testService()
	ctx := context.Background()

	require.NoError(t, svc.ApplyEvent(ctx, Event{
		Type: EventSubscriptionActivated, UserID: 1, Provider: "stripe", ProviderEventID: "evt_1",
	}))
	assert.Equal(t, "pro", store.plans[1])

	require.NoError(t, svc.ApplyEvent(ctx, Event{
		Type: EventSubscriptionCancelled, UserID: 1, Provider: "stripe", ProviderEventID: "evt_2",
	}))
	assert.Equal(t, "free", store.plans[1])
}

func TestApplyEventTopUpLandsInCurrentPeriod(t *testing.T) {
	svc, _, store := testService()

	require.NoError(t, svc.ApplyEvent(context.Background(), Event{
		Type: EventOneTimeTopUp, UserID: 1, Provider: "stripe", ProviderEventID: "evt_3",
	}))
	// Free user mid-May: the grant lands in the current ISO week.
	assert.Equal(t, int64(250000), store.allowances["2024-W20"])
}

func TestApplyEventReplayIsIgnored(t *testing.T) {
	svc, repo, store := testService()
	ctx := context.Background()
	ev := Event{Type: EventOneTimeTopUp, UserID: 1, Tokens: 1000, Provider: "stripe", ProviderEventID: "evt_dup"}

	require.NoError(t, svc.ApplyEvent(ctx, ev))
	require.NoError(t, svc.ApplyEvent(ctx, ev))

	assert.Equal(t, int64(1000), store.allowances["2024-W20"], "replay must not double-grant")
	assert.Len(t, repo.events, 1)
}

func TestApplyEventRequiresUser(t *testing.T) {
	svc, _, _ := testService()
	assert.Error(t, svc.ApplyEvent(context.Background(), Event{Type: EventOneTimeTopUp}))
}

func TestApplyEventRejectsUnknownUser(t *testing.T) {
	svc, repo, store := testService()
	repo.missing[5] = true

	err := svc.ApplyEvent(context.Background(), Event{
		Type: EventOneTimeTopUp, UserID: 5, Provider: "stripe", ProviderEventID: "evt_ghost",
	})
	assert.Error(t, err)
	assert.Empty(t, repo.events, "no event may be recorded for a user that does not exist")
	assert.Empty(t, store.allowances)
}

func TestRecordWebhookEventHashesMissingID(t *testing.T) {
	svc, _, _ := testService()

	created, stored, err := svc.RecordWebhookEvent(WebhookEventInput{Provider: "Stripe", PayloadJSON: `{"a":1}`})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "stripe", stored.Provider)
	assert.Contains(t, stored.ProviderEventID, "hash:")

	created, _, err = svc.RecordWebhookEvent(WebhookEventInput{Provider: "stripe", PayloadJSON: `{"a":1}`})
	require.NoError(t, err)
	assert.False(t, created, "same payload hashes to the same event id")
}

func TestPlansCatalog(t *testing.T) {
	svc, _, _ := testService()
	plans := svc.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, "free", plans[0].ID)
	assert.Equal(t, int64(500000), plans[1].TokenBudget)
	assert.Equal(t, "topup", plans[2].ID)
}

func stripeEvent(t *testing.T, eventType string, payload interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return stripe.Event{
		ID:   "evt_test",
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestMapStripeEventCheckoutSubscription(t *testing.T) {
	ev, err := mapStripeEvent(stripeEvent(t, "checkout.session.completed", map[string]interface{}{
		"client_reference_id": "42",
		"mode":                "subscription",
	}))
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionActivated, ev.Type)
	assert.Equal(t, uint(42), ev.UserID)
	assert.Equal(t, "evt_test", ev.ProviderEventID)
}

func TestMapStripeEventCheckoutPayment(t *testing.T) {
	ev, err := mapStripeEvent(stripeEvent(t, "checkout.session.completed", map[string]interface{}{
		"client_reference_id": "7",
		"mode":                "payment",
	}))
	require.NoError(t, err)
	assert.Equal(t, EventOneTimeTopUp, ev.Type)
	assert.Equal(t, uint(7), ev.UserID)
}

func TestMapStripeEventSubscriptionDeleted(t *testing.T) {
	ev, err := mapStripeEvent(stripeEvent(t, "customer.subscription.deleted", map[string]interface{}{
		"metadata": map[string]string{"user_id": "9"},
	}))
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionCancelled, ev.Type)
	assert.Equal(t, uint(9), ev.UserID)
}

func TestMapStripeEventUnhandledType(t *testing.T) {
	_, err := mapStripeEvent(stripeEvent(t, "invoice.paid", map[string]interface{}{}))
	assert.ErrorIs(t, err, ErrUnhandledWebhookEvent)
}

func TestMapStripeEventMissingUserRef(t *testing.T) {
	_, err := mapStripeEvent(stripeEvent(t, "checkout.session.completed", map[string]interface{}{
		"mode": "payment",
	}))
	assert.Error(t, err)
}
