package maintenance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements Store against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a maintenance repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRefillCandidates returns primary, non-deleted organizations with their
// active-subscription state.
func (r *Repository) ListRefillCandidates(ctx context.Context) ([]RefillCandidate, error) {
	const q = `SELECT o.id, o.credits, o.created_at, o.last_free_refill_at,
			EXISTS (SELECT 1 FROM subscriptions s WHERE s.organization_id = o.id AND s.status = 'active')
		FROM organizations o
		WHERE o.is_primary AND o.deleted_at IS NULL`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RefillCandidate
	for rows.Next() {
		var c RefillCandidate
		if err := rows.Scan(&c.OrgID, &c.Credits, &c.CreatedAt, &c.LastFreeRefillAt, &c.HasActiveSubscription); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RefillOrganization sets the credit balance, bumps the refill timestamp and
// clears the low-credit flag in one statement.
func (r *Repository) RefillOrganization(ctx context.Context, orgID uuid.UUID, credits int) error {
	const q = `UPDATE organizations
		SET credits = $1, last_free_refill_at = NOW(), low_credit_notified = FALSE, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL`
	_, err := r.pool.Exec(ctx, q, credits, orgID)
	return err
}

// ListCreditStates returns active organizations joined with an owner's email.
func (r *Repository) ListCreditStates(ctx context.Context) ([]CreditState, error) {
	const q = `SELECT o.id, o.name, o.credits, o.low_credit_notified, u.email
		FROM organizations o
		INNER JOIN organization_members m ON m.organization_id = o.id AND m.role = 'owner'
		INNER JOIN users u ON u.id = m.user_id
		WHERE o.deleted_at IS NULL`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CreditState
	seen := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var st CreditState
		if err := rows.Scan(&st.OrgID, &st.OrgName, &st.Credits, &st.Notified, &st.OwnerEmail); err != nil {
			return nil, err
		}
		// Multi-owner orgs produce one row per owner; alert the first only.
		if _, ok := seen[st.OrgID]; ok {
			continue
		}
		seen[st.OrgID] = struct{}{}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SetLowCreditNotified flips the reminder-sent flag.
func (r *Repository) SetLowCreditNotified(ctx context.Context, orgID uuid.UUID, notified bool) error {
	const q = `UPDATE organizations SET low_credit_notified = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, notified, orgID)
	return err
}

// ListActiveSubscriptions returns active subscriptions of non-deleted
// organizations, joined with an owner's email.
func (r *Repository) ListActiveSubscriptions(ctx context.Context) ([]UpcomingRenewal, error) {
	const q = `SELECT DISTINCT ON (s.id) s.id, o.name, s.current_period_end, s.renewal_reminder_sent, u.email
		FROM subscriptions s
		INNER JOIN organizations o ON o.id = s.organization_id AND o.deleted_at IS NULL
		INNER JOIN organization_members m ON m.organization_id = o.id AND m.role = 'owner'
		INNER JOIN users u ON u.id = m.user_id
		WHERE s.status = 'active'
		ORDER BY s.id, m.created_at ASC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UpcomingRenewal
	for rows.Next() {
		var sub UpcomingRenewal
		if err := rows.Scan(&sub.SubscriptionID, &sub.OrgName, &sub.PeriodEnd, &sub.ReminderSent, &sub.OwnerEmail); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// MarkRenewalReminderSent sets the per-subscription reminder flag.
func (r *Repository) MarkRenewalReminderSent(ctx context.Context, subscriptionID uuid.UUID) error {
	const q = `UPDATE subscriptions SET renewal_reminder_sent = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, subscriptionID)
	return err
}

// PurgeDeletedBefore hard-deletes organizations soft-deleted before cutoff.
// Members, invites, projects and subscriptions cascade.
func (r *Repository) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM organizations WHERE deleted_at IS NOT NULL AND deleted_at <= $1`
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
