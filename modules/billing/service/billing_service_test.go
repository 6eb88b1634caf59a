package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"practiceflow-api/core/config"
	"practiceflow-api/core/errors"
	"practiceflow-api/modules/billing/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

type fakeEntitlementRepo struct {
	mu            sync.Mutex
	profiles      map[uuid.UUID]*entity.Profile
	markPaidErr   error
	markPaidCalls int
}

func newFakeEntitlementRepo() *fakeEntitlementRepo {
	return &fakeEntitlementRepo{profiles: make(map[uuid.UUID]*entity.Profile)}
}

func (r *fakeEntitlementRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := *profile
	return &copied, nil
}

func (r *fakeEntitlementRepo) MarkPaid(ctx context.Context, userID uuid.UUID, customerID *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markPaidCalls++
	if r.markPaidErr != nil {
		return false, r.markPaidErr
	}
	profile, ok := r.profiles[userID]
	if !ok {
		return false, nil
	}
	profile.Plan = entity.PlanPaid
	if profile.StripeCustomerID == nil && customerID != nil {
		profile.StripeCustomerID = customerID
	}
	return true, nil
}

func setBillingTestConfig(t *testing.T, apiBase string) {
	t.Helper()
	config.SetForTest(&config.Config{
		Stripe: config.StripeConfig{
			SecretKey:     "sk_test_123",
			WebhookSecret: testWebhookSecret,
			APIBase:       apiBase,
			SuccessURL:    "http://localhost:3000/settings/billing?success=true",
			CancelURL:     "http://localhost:3000/settings/billing?canceled=true",
			PortalReturn:  "http://localhost:3000/settings/billing",
		},
	})
	t.Cleanup(func() { config.SetForTest(nil) })
}

func newTestBillingService(repo *fakeEntitlementRepo, apiBase string, now time.Time) *billingService {
	return &billingService{
		repo:   repo,
		stripe: newStripeClient(apiBase, "sk_test_123"),
		now:    func() time.Time { return now },
	}
}

// signPayload builds a Stripe-Signature header the same way the provider does.
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func checkoutCompletedEvent(userRef string, customer string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"client_reference_id": %q,
			"customer": %q,
			"metadata": {"supabase_user_id": %q}
		}}
	}`, userRef, customer, userRef))
}

func TestHandleWebhookEventMarksPaid(t *testing.T) {
	setBillingTestConfig(t, "http://stub.invalid")
	repo := newFakeEntitlementRepo()
	userID := uuid.New()
	repo.profiles[userID] = &entity.Profile{ID: userID, Plan: entity.PlanFree}

	now := time.Now()
	service := newTestBillingService(repo, "http://stub.invalid", now)

	payload := checkoutCompletedEvent(userID.String(), "cus_123")
	appErr := service.HandleWebhookEvent(context.Background(), payload, signPayload(payload, testWebhookSecret, now))
	require.Nil(t, appErr)

	profile := repo.profiles[userID]
	assert.Equal(t, entity.PlanPaid, profile.Plan)
	require.NotNil(t, profile.StripeCustomerID)
	assert.Equal(t, "cus_123", *profile.StripeCustomerID)
}

func TestHandleWebhookEventReplayIsIdempotent(t *testing.T) {
	setBillingTestConfig(t, "http://stub.invalid")
	repo := newFakeEntitlementRepo()
	userID := uuid.New()
	first := "cus_first"
	repo.profiles[userID] = &entity.Profile{ID: userID, Plan: entity.PlanPaid, StripeCustomerID: &first}

	now := time.Now()
	service := newTestBillingService(repo, "http://stub.invalid", now)

	payload := checkoutCompletedEvent(userID.String(), "cus_second")
	appErr := service.HandleWebhookEvent(context.Background(), payload, signPayload(payload, testWebhookSecret, now))
	require.Nil(t, appErr)

	profile := repo.profiles[userID]
	assert.Equal(t, entity.PlanPaid, profile.Plan)
	// The customer id recorded first is never overwritten by a replay.
	assert.Equal(t, "cus_first", *profile.StripeCustomerID)
}

func TestHandleWebhookEventSignatureFailures(t *testing.T) {
	setBillingTestConfig(t, "http://stub.invalid")
	repo := newFakeEntitlementRepo()
	now := time.Now()
	service := newTestBillingService(repo, "http://stub.invalid", now)
	payload := checkoutCompletedEvent(uuid.New().String(), "cus_123")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"tampered payload", signPayload([]byte(`{"type":"something.else"}`), testWebhookSecret, now)},
		{"wrong secret", signPayload(payload, "whsec_other", now)},
		{"stale timestamp", signPayload(payload, testWebhookSecret, now.Add(-10*time.Minute))},
		{"garbage header", "t=abc,v1=zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := service.HandleWebhookEvent(context.Background(), payload, tt.header)
			require.NotNil(t, appErr)
			assert.Equal(t, errors.ErrInvalidSignature, appErr.Code)
		})
	}
	assert.Zero(t, repo.markPaidCalls)
}

func TestHandleWebhookEventAcknowledgedNoOps(t *testing.T) {
	setBillingTestConfig(t, "http://stub.invalid")
	now := time.Now()

	tests := []struct {
		name         string
		payload      []byte
		touchesStore bool
	}{
		{"other event type", []byte(`{"id":"evt_2","type":"invoice.paid","data":{"object":{}}}`), false},
		{"unparseable body", []byte(`not json at all`), false},
		{"no user reference", []byte(`{"id":"evt_3","type":"checkout.session.completed","data":{"object":{"id":"cs_2","customer":"cus_9"}}}`), false},
		{"user reference not a uuid", checkoutCompletedEvent("not-a-uuid", "cus_9"), false},
		{"unknown user", checkoutCompletedEvent(uuid.New().String(), "cus_9"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeEntitlementRepo()
			service := newTestBillingService(repo, "http://stub.invalid", now)
			appErr := service.HandleWebhookEvent(context.Background(), tt.payload, signPayload(tt.payload, testWebhookSecret, now))
			assert.Nil(t, appErr)
			if tt.touchesStore {
				assert.Equal(t, 1, repo.markPaidCalls)
			} else {
				assert.Zero(t, repo.markPaidCalls)
			}
		})
	}
}

func TestHandleWebhookEventPersistenceFailure(t *testing.T) {
	setBillingTestConfig(t, "http://stub.invalid")
	repo := newFakeEntitlementRepo()
	repo.markPaidErr = assert.AnError
	now := time.Now()
	service := newTestBillingService(repo, "http://stub.invalid", now)

	payload := checkoutCompletedEvent(uuid.New().String(), "cus_123")
	appErr := service.HandleWebhookEvent(context.Background(), payload, signPayload(payload, testWebhookSecret, now))
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrPersistence, appErr.Code)
}

func TestCreateCheckoutSessionCarriesUserReference(t *testing.T) {
	var gotForm map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.test/cs_1"}`))
	}))
	t.Cleanup(server.Close)
	setBillingTestConfig(t, server.URL)

	repo := newFakeEntitlementRepo()
	service := newTestBillingService(repo, server.URL, time.Now())
	userID := uuid.New()

	resp, appErr := service.CreateCheckoutSession(context.Background(), userID, "price_123")
	require.Nil(t, appErr)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", resp.URL)

	assert.Equal(t, "subscription", gotForm["mode"][0])
	assert.Equal(t, "price_123", gotForm["line_items[0][price]"][0])
	assert.Equal(t, userID.String(), gotForm["client_reference_id"][0])
	assert.Equal(t, userID.String(), gotForm["metadata[supabase_user_id]"][0])
}

func TestCreateCheckoutSessionValidation(t *testing.T) {
	setBillingTestConfig(t, "http://stub.invalid")
	service := newTestBillingService(newFakeEntitlementRepo(), "http://stub.invalid", time.Now())

	_, appErr := service.CreateCheckoutSession(context.Background(), uuid.Nil, "price_123")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrUnauthorized, appErr.Code)

	_, appErr = service.CreateCheckoutSession(context.Background(), uuid.New(), "")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestCreatePortalSession(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_123", r.PostForm.Get("customer"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"bps_1","url":"https://portal.stripe.test/bps_1"}`))
	}))
	t.Cleanup(server.Close)
	setBillingTestConfig(t, server.URL)

	repo := newFakeEntitlementRepo()
	userID := uuid.New()
	customer := "cus_123"
	repo.profiles[userID] = &entity.Profile{ID: userID, Plan: entity.PlanPaid, StripeCustomerID: &customer}
	service := newTestBillingService(repo, server.URL, time.Now())

	resp, appErr := service.CreatePortalSession(context.Background(), userID)
	require.Nil(t, appErr)
	assert.Equal(t, "https://portal.stripe.test/bps_1", resp.URL)
	assert.Equal(t, 1, calls)
}

func TestCreatePortalSessionWithoutCustomer(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	t.Cleanup(server.Close)
	setBillingTestConfig(t, server.URL)

	repo := newFakeEntitlementRepo()
	userID := uuid.New()
	repo.profiles[userID] = &entity.Profile{ID: userID, Plan: entity.PlanFree}
	service := newTestBillingService(repo, server.URL, time.Now())

	_, appErr := service.CreatePortalSession(context.Background(), userID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrNoSubscription, appErr.Code)
	// The provider is never called for users who never checked out.
	assert.Zero(t, calls)
}

func TestGetEntitlement(t *testing.T) {
	setBillingTestConfig(t, "http://stub.invalid")
	repo := newFakeEntitlementRepo()
	service := newTestBillingService(repo, "http://stub.invalid", time.Now())
	userID := uuid.New()

	_, appErr := service.GetEntitlement(context.Background(), userID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)

	customer := "cus_123"
	repo.profiles[userID] = &entity.Profile{ID: userID, Plan: entity.PlanPaid, StripeCustomerID: &customer}

	resp, appErr := service.GetEntitlement(context.Background(), userID)
	require.Nil(t, appErr)
	assert.Equal(t, "paid", resp.Plan)
	assert.True(t, resp.HasCustomer)
}
