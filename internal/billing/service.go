package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nimbus-saas/backend/config"
	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/pkg/apperr"
)

// Store is the persistence surface the billing service depends on.
type Store interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetActiveSubscription(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, s *models.Subscription) error
	MarkCanceledByProviderID(ctx context.Context, providerSubscriptionID string) error
	SetCustomerID(ctx context.Context, orgID uuid.UUID, customerID string) error
}

// Service drives subscription checkout, renewal and portal flows through the
// payment provider.
type Service struct {
	store    Store
	provider Provider
	limits   config.LimitsConfig
	logger   *zap.Logger
}

// NewService creates a billing service.
func NewService(store Store, provider Provider, limits config.LimitsConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, provider: provider, limits: limits, logger: logger}
}

// CreateSubscription starts checkout for a plan and returns the provider URL.
// An organization with an active subscription cannot start a second one.
func (s *Service) CreateSubscription(ctx context.Context, orgID uuid.UUID, planID string) (*CheckoutSession, error) {
	if planID == "" {
		return nil, apperr.BadRequest("plan_id is required")
	}
	org, err := s.activeOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if sub, err := s.store.GetActiveSubscription(ctx, orgID); err != nil {
		return nil, err
	} else if sub != nil {
		return nil, apperr.Conflict("this organization already has an active subscription")
	}
	return s.provider.CreateCheckoutSession(ctx, org.StripeCustomerID, planID, orgID.String())
}

// RenewSubscription starts a renewal checkout, allowed only when the
// organization's credits have dropped below the renewal threshold. This stops
// accidental double purchases while credits are still plentiful.
func (s *Service) RenewSubscription(ctx context.Context, orgID uuid.UUID, planID string) (*CheckoutSession, error) {
	if planID == "" {
		return nil, apperr.BadRequest("plan_id is required")
	}
	org, err := s.activeOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.Credits >= s.limits.RenewalCreditThreshold {
		return nil, apperr.Newf(apperr.KindPreconditionFailed,
			"renewal is available once credits drop below %d", s.limits.RenewalCreditThreshold)
	}
	return s.provider.CreateCheckoutSession(ctx, org.StripeCustomerID, planID, orgID.String())
}

// CreateCustomerPortal returns the provider portal URL for an organization
// that already has a customer reference.
func (s *Service) CreateCustomerPortal(ctx context.Context, orgID uuid.UUID) (string, error) {
	org, err := s.activeOrg(ctx, orgID)
	if err != nil {
		return "", err
	}
	if org.StripeCustomerID == "" {
		return "", apperr.PreconditionFailed("no billing account exists for this organization yet")
	}
	return s.provider.CreateBillingPortalSession(ctx, org.StripeCustomerID)
}

// ConfirmSubscription records a completed checkout. Clients post the provider
// references after the hosted checkout redirects back.
type ConfirmSubscription struct {
	ProviderSubscriptionID string    `json:"provider_subscription_id" binding:"required"`
	CustomerID             string    `json:"customer_id"`
	PlanID                 string    `json:"plan_id" binding:"required"`
	CurrentPeriodStart     time.Time `json:"current_period_start" binding:"required"`
	CurrentPeriodEnd       time.Time `json:"current_period_end" binding:"required"`
}

// RecordSubscription persists a confirmed checkout as the organization's
// active subscription and stores the customer reference for later portal and
// renewal flows.
func (s *Service) RecordSubscription(ctx context.Context, orgID uuid.UUID, confirm ConfirmSubscription) (*models.Subscription, error) {
	org, err := s.activeOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if existing, err := s.store.GetActiveSubscription(ctx, orgID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperr.Conflict("this organization already has an active subscription")
	}

	sub := &models.Subscription{
		OrganizationID:         orgID,
		ProviderSubscriptionID: confirm.ProviderSubscriptionID,
		PlanID:                 confirm.PlanID,
		Status:                 models.SubscriptionStatusActive,
		CurrentPeriodStart:     confirm.CurrentPeriodStart,
		CurrentPeriodEnd:       confirm.CurrentPeriodEnd,
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	if confirm.CustomerID != "" && org.StripeCustomerID == "" {
		if err := s.store.SetCustomerID(ctx, orgID, confirm.CustomerID); err != nil {
			s.logger.Warn("store customer reference",
				zap.String("org_id", orgID.String()), zap.Error(err))
		}
	}
	return sub, nil
}

// CancelSubscription cancels the subscription with the provider and marks the
// local row canceled. Satisfies the canceler dependency of organization
// deletion.
func (s *Service) CancelSubscription(ctx context.Context, providerSubscriptionID string) error {
	if err := s.provider.CancelSubscription(ctx, providerSubscriptionID); err != nil {
		return err
	}
	if err := s.store.MarkCanceledByProviderID(ctx, providerSubscriptionID); err != nil {
		// The provider-side cancel already went through; the local row will
		// read stale until the next reconciliation.
		s.logger.Warn("mark subscription canceled",
			zap.String("provider_subscription_id", providerSubscriptionID), zap.Error(err))
	}
	return nil
}

// GetSubscription returns the organization's active subscription.
func (s *Service) GetSubscription(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.store.GetActiveSubscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, apperr.NotFound("no active subscription")
	}
	return sub, nil
}

func (s *Service) activeOrg(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil || org.DeletedAt != nil {
		return nil, apperr.NotFound("Organization not found")
	}
	return org, nil
}
