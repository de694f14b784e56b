package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-saas/backend/internal/models"
)

// Repository handles subscription persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a billing repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetOrganization returns the organization, or nil when absent.
func (r *Repository) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	const q = `SELECT id, name, credits, is_primary, COALESCE(stripe_customer_id,''), deleted_at
		FROM organizations WHERE id = $1`
	var org models.Organization
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&org.ID, &org.Name, &org.Credits, &org.IsPrimary, &org.StripeCustomerID, &org.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetActiveSubscription returns the organization's active subscription, or nil.
func (r *Repository) GetActiveSubscription(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	const q = `SELECT id, organization_id, provider_subscription_id, plan_id, status,
			current_period_start, current_period_end, renewal_reminder_sent, canceled_at, created_at, updated_at
		FROM subscriptions WHERE organization_id = $1 AND status = 'active'`
	var s models.Subscription
	err := r.pool.QueryRow(ctx, q, orgID).Scan(&s.ID, &s.OrganizationID, &s.ProviderSubscriptionID,
		&s.PlanID, &s.Status, &s.CurrentPeriodStart, &s.CurrentPeriodEnd,
		&s.RenewalReminderSent, &s.CanceledAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSubscription records a provider subscription for the organization.
func (r *Repository) CreateSubscription(ctx context.Context, s *models.Subscription) error {
	const q = `INSERT INTO subscriptions (id, organization_id, provider_subscription_id, plan_id, status, current_period_start, current_period_end)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.OrganizationID, s.ProviderSubscriptionID, s.PlanID,
		s.Status, s.CurrentPeriodStart, s.CurrentPeriodEnd).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// MarkCanceledByProviderID marks the subscription canceled by its provider
// reference.
func (r *Repository) MarkCanceledByProviderID(ctx context.Context, providerSubscriptionID string) error {
	const q = `UPDATE subscriptions SET status = 'canceled', canceled_at = NOW(), updated_at = NOW()
		WHERE provider_subscription_id = $1`
	_, err := r.pool.Exec(ctx, q, providerSubscriptionID)
	return err
}

// SetCustomerID stores the provider customer reference on the organization.
func (r *Repository) SetCustomerID(ctx context.Context, orgID uuid.UUID, customerID string) error {
	const q = `UPDATE organizations SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, customerID, orgID)
	return err
}
