package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/OlehKovalenko/CoachPilot/app/models"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/credits"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/profiles"
)

// fakePaymentRepo is an in-memory PaymentRepo with the same atomicity
// contract as the MySQL implementation (CAS on the processed marker).
type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func newFakePaymentRepo(payments ...*models.Payment) *fakePaymentRepo {
	repo := &fakePaymentRepo{payments: make(map[string]*models.Payment)}
	for _, p := range payments {
		repo.payments[p.OrderID] = p
	}
	return repo
}

func (r *fakePaymentRepo) UpdateStatusByOrderID(orderID, status, errText string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	p.Status = status
	p.Error = errText
	clone := *p
	return &clone, nil
}

func (r *fakePaymentRepo) GetByID(id uint) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			clone := *p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) MarkProcessed(id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			if p.Processed {
				return false, nil
			}
			p.Processed = true
			return true, nil
		}
	}
	return false, nil
}

// fakeProfileStore counts credit adjustments and records cached statuses.
type fakeProfileStore struct {
	mu          sync.Mutex
	profilesMap map[uint]*models.Profile
	adjustments []int
	statuses    map[string]string
}

func newFakeProfileStore(ps ...*models.Profile) *fakeProfileStore {
	store := &fakeProfileStore{
		profilesMap: make(map[uint]*models.Profile),
		statuses:    make(map[string]string),
	}
	for _, p := range ps {
		store.profilesMap[p.ID] = p
	}
	return store
}

func (s *fakeProfileStore) GetRecord(_ context.Context, profileID uint) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profilesMap[profileID]
	if !ok {
		return nil, profiles.ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *fakeProfileStore) AdjustCredits(_ context.Context, profileID uint, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profilesMap[profileID]
	if !ok {
		return 0, profiles.ErrProfileNotFound
	}
	p.Credits += delta
	s.adjustments = append(s.adjustments, delta)
	return p.Credits, nil
}

func (s *fakeProfileStore) SetPaymentStatus(_ context.Context, profileID uint, paymentType, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[paymentType] = status
	return nil
}

// fakeNotifier records dispatched notifications.
type fakeNotifier struct {
	mu        sync.Mutex
	successes []int
	failures  int
}

func (n *fakeNotifier) Success(profileID uint, language string, credits int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, credits)
}

func (n *fakeNotifier) Failure(profileID uint, language string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures++
}

// fakeSubs records subscription extensions.
type fakeSubs struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSubs) Extend(profileID uint, period time.Duration) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &models.Subscription{ProfileID: profileID, Status: models.SubscriptionStatusActive, ExpiresAt: time.Now().Add(period)}, nil
}

func testConverter() *credits.Converter {
	catalog := credits.NewCatalog([]credits.CreditPackage{
		{Name: "starter", Credits: 400, Price: decimal.NewFromInt(500)},
	})
	return credits.NewConverter(catalog, decimal.NewFromInt(10))
}

func newTestProcessor(repo *fakePaymentRepo, store *fakeProfileStore, notifier *fakeNotifier) (*Processor, *fakeSubs) {
	subs := &fakeSubs{}
	strategies := NewStrategies(store, testConverter(), subs, notifier, nil)
	return NewProcessor(repo, store, strategies), subs
}

func creditPayment(id uint, orderID string, profileID uint, amount int64) *models.Payment {
	return &models.Payment{
		ID:          id,
		OrderID:     orderID,
		ProfileID:   profileID,
		Amount:      decimal.NewFromInt(amount),
		Currency:    "UAH",
		PaymentType: models.PaymentTypeCredits,
		Status:      models.PaymentStatusPending,
	}
}

func TestHandleWebhookEvent_SuccessTopUp(t *testing.T) {
	repo := newFakePaymentRepo(creditPayment(1, "order-1", 7, 500))
	store := newFakeProfileStore(&models.Profile{ID: 7, Language: "uk"})
	notifier := &fakeNotifier{}
	processor, _ := newTestProcessor(repo, store, notifier)

	err := processor.HandleWebhookEvent(context.Background(), "order-1", models.PaymentStatusSuccess, "")
	require.NoError(t, err)

	assert.Equal(t, []int{400}, store.adjustments, "catalog package credits applied once")
	assert.Equal(t, []int{400}, notifier.successes)
	assert.Equal(t, models.PaymentStatusSuccess, store.statuses[models.PaymentTypeCredits])

	payment, err := repo.GetByOrderIDForTest("order-1")
	require.NoError(t, err)
	assert.True(t, payment.Processed)
}

func TestHandleWebhookEvent_Idempotent(t *testing.T) {
	repo := newFakePaymentRepo(creditPayment(1, "order-1", 7, 500))
	store := newFakeProfileStore(&models.Profile{ID: 7, Language: "uk"})
	notifier := &fakeNotifier{}
	processor, _ := newTestProcessor(repo, store, notifier)

	ctx := context.Background()
	require.NoError(t, processor.HandleWebhookEvent(ctx, "order-1", models.PaymentStatusSuccess, ""))
	require.NoError(t, processor.HandleWebhookEvent(ctx, "order-1", models.PaymentStatusSuccess, ""))

	assert.Len(t, store.adjustments, 1, "second delivery must be a no-op")
	assert.Len(t, notifier.successes, 1)
}

func TestHandleWebhookEvent_ConcurrentDuplicateDelivery(t *testing.T) {
	repo := newFakePaymentRepo(creditPayment(1, "order-1", 7, 500))
	store := newFakeProfileStore(&models.Profile{ID: 7, Language: "uk"})
	notifier := &fakeNotifier{}
	processor, _ := newTestProcessor(repo, store, notifier)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = processor.HandleWebhookEvent(context.Background(), "order-1", models.PaymentStatusSuccess, "")
		}()
	}
	wg.Wait()

	assert.Len(t, store.adjustments, 1, "credits must be applied exactly once")
	assert.Equal(t, 400, store.profilesMap[7].Credits)
}

func TestHandleWebhookEvent_UnknownOrderDropped(t *testing.T) {
	repo := newFakePaymentRepo()
	store := newFakeProfileStore()
	notifier := &fakeNotifier{}
	processor, _ := newTestProcessor(repo, store, notifier)

	err := processor.HandleWebhookEvent(context.Background(), "ghost", models.PaymentStatusSuccess, "")
	assert.NoError(t, err, "unknown order is terminal, not retryable")
	assert.Empty(t, store.adjustments)
}

func TestHandleWebhookEvent_UnknownProfileDropped(t *testing.T) {
	repo := newFakePaymentRepo(creditPayment(1, "order-1", 99, 500))
	store := newFakeProfileStore() // profile 99 missing
	notifier := &fakeNotifier{}
	processor, _ := newTestProcessor(repo, store, notifier)

	err := processor.HandleWebhookEvent(context.Background(), "order-1", models.PaymentStatusSuccess, "")
	assert.NoError(t, err)

	payment, err := repo.GetByOrderIDForTest("order-1")
	require.NoError(t, err)
	assert.False(t, payment.Processed, "payment must stay unprocessed for audits")
}

func TestHandleWebhookEvent_UnknownStatusLeftUnprocessed(t *testing.T) {
	repo := newFakePaymentRepo(creditPayment(1, "order-1", 7, 500))
	store := newFakeProfileStore(&models.Profile{ID: 7})
	notifier := &fakeNotifier{}
	processor, _ := newTestProcessor(repo, store, notifier)

	err := processor.HandleWebhookEvent(context.Background(), "order-1", "reversed", "")
	assert.NoError(t, err)
	assert.Empty(t, store.adjustments)
	assert.Zero(t, notifier.failures)

	payment, err := repo.GetByOrderIDForTest("order-1")
	require.NoError(t, err)
	assert.False(t, payment.Processed)
}

func TestHandleWebhookEvent_UnresolvablePricePropagates(t *testing.T) {
	// 777 matches no package and the converter has no valid rate.
	repo := newFakePaymentRepo(creditPayment(1, "order-1", 7, 777))
	store := newFakeProfileStore(&models.Profile{ID: 7})
	notifier := &fakeNotifier{}
	subs := &fakeSubs{}
	strategies := NewStrategies(store, credits.NewConverter(credits.NewCatalog(nil), decimal.Zero), subs, notifier, nil)
	processor := NewProcessor(repo, store, strategies)

	err := processor.HandleWebhookEvent(context.Background(), "order-1", models.PaymentStatusSuccess, "")
	assert.ErrorIs(t, err, credits.ErrUnresolvablePrice)

	payment, rerr := repo.GetByOrderIDForTest("order-1")
	require.NoError(t, rerr)
	assert.False(t, payment.Processed, "payment stays open for manual reconciliation")
	assert.Empty(t, store.adjustments)
	assert.Empty(t, notifier.successes)
}

func TestHandleWebhookEvent_Failure(t *testing.T) {
	repo := newFakePaymentRepo(creditPayment(1, "order-1", 7, 500))
	store := newFakeProfileStore(&models.Profile{ID: 7, Language: "en"})
	notifier := &fakeNotifier{}
	processor, _ := newTestProcessor(repo, store, notifier)

	err := processor.HandleWebhookEvent(context.Background(), "order-1", models.PaymentStatusFailure, "card declined")
	require.NoError(t, err)

	assert.Equal(t, 1, notifier.failures)
	assert.Empty(t, store.adjustments)
	assert.Equal(t, models.PaymentStatusFailure, store.statuses[models.PaymentTypeCredits])

	payment, err := repo.GetByOrderIDForTest("order-1")
	require.NoError(t, err)
	assert.True(t, payment.Processed)
	assert.Equal(t, "card declined", payment.Error)
}

func TestHandleWebhookEvent_PendingLeavesPaymentOpen(t *testing.T) {
	repo := newFakePaymentRepo(creditPayment(1, "order-1", 7, 500))
	store := newFakeProfileStore(&models.Profile{ID: 7})
	notifier := &fakeNotifier{}
	processor, _ := newTestProcessor(repo, store, notifier)

	ctx := context.Background()
	require.NoError(t, processor.HandleWebhookEvent(ctx, "order-1", models.PaymentStatusPending, ""))

	payment, err := repo.GetByOrderIDForTest("order-1")
	require.NoError(t, err)
	assert.False(t, payment.Processed, "pending is inert, the terminal webhook must still reconcile")

	// The terminal success still goes through afterwards.
	require.NoError(t, processor.HandleWebhookEvent(ctx, "order-1", models.PaymentStatusSuccess, ""))
	assert.Equal(t, []int{400}, store.adjustments)
}

func TestHandleWebhookEvent_ClosedCachesStatusOnly(t *testing.T) {
	repo := newFakePaymentRepo(creditPayment(1, "order-1", 7, 500))
	store := newFakeProfileStore(&models.Profile{ID: 7})
	notifier := &fakeNotifier{}
	processor, _ := newTestProcessor(repo, store, notifier)

	require.NoError(t, processor.HandleWebhookEvent(context.Background(), "order-1", models.PaymentStatusClosed, ""))

	assert.Equal(t, models.PaymentStatusClosed, store.statuses[models.PaymentTypeCredits])
	assert.Empty(t, store.adjustments)
	assert.Empty(t, notifier.successes)
	assert.Zero(t, notifier.failures)
}

func TestHandleWebhookEvent_SubscriptionSuccess(t *testing.T) {
	payment := creditPayment(1, "order-1", 7, 300)
	payment.PaymentType = models.PaymentTypeSubscription
	repo := newFakePaymentRepo(payment)
	store := newFakeProfileStore(&models.Profile{ID: 7, Language: "uk"})
	notifier := &fakeNotifier{}
	processor, subs := newTestProcessor(repo, store, notifier)

	require.NoError(t, processor.HandleWebhookEvent(context.Background(), "order-1", models.PaymentStatusSuccess, ""))

	assert.Equal(t, 1, subs.calls, "subscription extended instead of credits")
	assert.Empty(t, store.adjustments)
	assert.Equal(t, []int{0}, notifier.successes)
}

// GetByOrderIDForTest exposes repo state to assertions.
func (r *fakePaymentRepo) GetByOrderIDForTest(orderID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *p
	return &clone, nil
}
