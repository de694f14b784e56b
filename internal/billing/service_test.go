package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-saas/backend/config"
	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/pkg/apperr"
)

type fakeStore struct {
	orgs map[uuid.UUID]*models.Organization
	subs map[uuid.UUID]*models.Subscription
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgs: make(map[uuid.UUID]*models.Organization),
		subs: make(map[uuid.UUID]*models.Subscription),
	}
}

func (f *fakeStore) GetOrganization(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	return f.orgs[id], nil
}

func (f *fakeStore) GetActiveSubscription(_ context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	return f.subs[orgID], nil
}

func (f *fakeStore) CreateSubscription(_ context.Context, s *models.Subscription) error {
	s.ID = uuid.New()
	f.subs[s.OrganizationID] = s
	return nil
}

func (f *fakeStore) MarkCanceledByProviderID(_ context.Context, providerID string) error {
	for _, s := range f.subs {
		if s.ProviderSubscriptionID == providerID {
			s.Status = models.SubscriptionStatusCanceled
		}
	}
	return nil
}

func (f *fakeStore) SetCustomerID(_ context.Context, orgID uuid.UUID, customerID string) error {
	f.orgs[orgID].StripeCustomerID = customerID
	return nil
}

type fakeProvider struct {
	checkouts []string // referenceIDs of created sessions
	portalURL string
	canceled  []string
	err       error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, _, _, referenceID string) (*CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.checkouts = append(f.checkouts, referenceID)
	return &CheckoutSession{ID: "cs_test", URL: "https://checkout.example/" + referenceID}, nil
}

func (f *fakeProvider) CreateBillingPortalSession(_ context.Context, customerID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.portalURL = "https://portal.example/" + customerID
	return f.portalURL, nil
}

func (f *fakeProvider) CancelSubscription(_ context.Context, id string) error {
	f.canceled = append(f.canceled, id)
	return f.err
}

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{RenewalCreditThreshold: 3}
}

func seedOrg(store *fakeStore, credits int) *models.Organization {
	org := &models.Organization{ID: uuid.New(), Name: "Acme", Credits: credits}
	store.orgs[org.ID] = org
	return org
}

func TestCreateSubscription(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{}
	svc := NewService(store, provider, testLimits(), nil)
	org := seedOrg(store, 0)

	sess, err := svc.CreateSubscription(context.Background(), org.ID, "price_basic")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.URL)
	assert.Equal(t, []string{org.ID.String()}, provider.checkouts)
}

func TestCreateSubscriptionAlreadyActive(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeProvider{}, testLimits(), nil)
	org := seedOrg(store, 0)
	store.subs[org.ID] = &models.Subscription{ID: uuid.New(), OrganizationID: org.ID, Status: models.SubscriptionStatusActive}

	_, err := svc.CreateSubscription(context.Background(), org.ID, "price_basic")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateSubscriptionUnknownOrg(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeProvider{}, testLimits(), nil)
	_, err := svc.CreateSubscription(context.Background(), uuid.New(), "price_basic")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRenewSubscriptionGatedOnCredits(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{}
	svc := NewService(store, provider, testLimits(), nil)

	// At or above the threshold renewal is refused.
	rich := seedOrg(store, 3)
	_, err := svc.RenewSubscription(context.Background(), rich.ID, "price_basic")
	require.Error(t, err)
	assert.Equal(t, apperr.KindPreconditionFailed, apperr.KindOf(err))
	assert.Empty(t, provider.checkouts)

	// Below the threshold it goes through.
	poor := seedOrg(store, 2)
	sess, err := svc.RenewSubscription(context.Background(), poor.ID, "price_basic")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.URL)
}

func TestCreateCustomerPortalRequiresCustomer(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{}
	svc := NewService(store, provider, testLimits(), nil)

	org := seedOrg(store, 0)
	_, err := svc.CreateCustomerPortal(context.Background(), org.ID)
	assert.Equal(t, apperr.KindPreconditionFailed, apperr.KindOf(err))

	org.StripeCustomerID = "cus_123"
	url, err := svc.CreateCustomerPortal(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Contains(t, url, "cus_123")
}

func TestRecordSubscription(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeProvider{}, testLimits(), nil)
	org := seedOrg(store, 0)

	now := time.Now()
	sub, err := svc.RecordSubscription(context.Background(), org.ID, ConfirmSubscription{
		ProviderSubscriptionID: "sub_123",
		CustomerID:             "cus_123",
		PlanID:                 "price_basic",
		CurrentPeriodStart:     now,
		CurrentPeriodEnd:       now.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.True(t, sub.Active())
	assert.Equal(t, "cus_123", store.orgs[org.ID].StripeCustomerID)

	// A second confirmation conflicts while the first is active.
	_, err = svc.RecordSubscription(context.Background(), org.ID, ConfirmSubscription{
		ProviderSubscriptionID: "sub_456", PlanID: "price_basic",
		CurrentPeriodStart: now, CurrentPeriodEnd: now.Add(30 * 24 * time.Hour),
	})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestRecordSubscriptionKeepsExistingCustomerRef(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeProvider{}, testLimits(), nil)
	org := seedOrg(store, 0)
	org.StripeCustomerID = "cus_original"

	now := time.Now()
	_, err := svc.RecordSubscription(context.Background(), org.ID, ConfirmSubscription{
		ProviderSubscriptionID: "sub_123",
		CustomerID:             "cus_other",
		PlanID:                 "price_basic",
		CurrentPeriodStart:     now,
		CurrentPeriodEnd:       now.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_original", store.orgs[org.ID].StripeCustomerID)
}

func TestCancelSubscriptionMarksLocalRow(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{}
	svc := NewService(store, provider, testLimits(), nil)
	org := seedOrg(store, 0)
	store.subs[org.ID] = &models.Subscription{
		ID: uuid.New(), OrganizationID: org.ID,
		ProviderSubscriptionID: "sub_123", Status: models.SubscriptionStatusActive,
	}

	require.NoError(t, svc.CancelSubscription(context.Background(), "sub_123"))
	assert.Equal(t, []string{"sub_123"}, provider.canceled)
	assert.Equal(t, models.SubscriptionStatusCanceled, store.subs[org.ID].Status)
}

func TestCancelSubscriptionProviderFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{err: assert.AnError}
	svc := NewService(store, provider, testLimits(), nil)
	org := seedOrg(store, 0)
	store.subs[org.ID] = &models.Subscription{
		ID: uuid.New(), OrganizationID: org.ID,
		ProviderSubscriptionID: "sub_123", Status: models.SubscriptionStatusActive,
	}

	require.Error(t, svc.CancelSubscription(context.Background(), "sub_123"))
	assert.Equal(t, models.SubscriptionStatusActive, store.subs[org.ID].Status,
		"the local row stays active when the provider call fails")
}

func TestGetSubscription(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeProvider{}, testLimits(), nil)
	org := seedOrg(store, 0)

	_, err := svc.GetSubscription(context.Background(), org.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	store.subs[org.ID] = &models.Subscription{ID: uuid.New(), OrganizationID: org.ID, Status: models.SubscriptionStatusActive}
	sub, err := svc.GetSubscription(context.Background(), org.ID)
	require.NoError(t, err)
	assert.True(t, sub.Active())
}
