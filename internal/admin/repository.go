package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-saas/backend/internal/models"
)

// Repository serves the platform-admin read surface.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an admin repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// DashboardStats are the platform-wide headline counts.
type DashboardStats struct {
	TotalUsers          int `json:"total_users"`
	TotalOrganizations  int `json:"total_organizations"`
	ActiveSubscriptions int `json:"active_subscriptions"`
}

// GetDashboardStats returns headline counts. Soft-deleted organizations are
// excluded.
func (r *Repository) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM organizations WHERE deleted_at IS NULL),
		(SELECT COUNT(*) FROM subscriptions WHERE status = 'active')`
	var st DashboardStats
	err := r.pool.QueryRow(ctx, q).
		Scan(&st.TotalUsers, &st.TotalOrganizations, &st.ActiveSubscriptions)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// UserRow is a user listing entry.
type UserRow struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	OrgCount  int       `json:"org_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ListUsers returns a page of users, optionally filtered by an email or name
// substring.
func (r *Repository) ListUsers(ctx context.Context, p Page, search string) ([]UserRow, int, error) {
	const countQ = `SELECT COUNT(*) FROM users
		WHERE ($1 = '' OR email ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%')`
	var total int
	if err := r.pool.QueryRow(ctx, countQ, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `SELECT u.id, u.email, u.full_name,
			(SELECT COUNT(*) FROM organization_members m WHERE m.user_id = u.id),
			u.created_at
		FROM users u
		WHERE ($1 = '' OR u.email ILIKE '%' || $1 || '%' OR u.full_name ILIKE '%' || $1 || '%')
		ORDER BY u.created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, search, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []UserRow
	for rows.Next() {
		var u UserRow
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.OrgCount, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// OrgRow is an organization listing entry.
type OrgRow struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Credits     int        `json:"credits"`
	MemberCount int        `json:"member_count"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListOrganizations returns a page of organizations, soft-deleted included so
// admins can see pending purges. Optional name/slug substring filter.
func (r *Repository) ListOrganizations(ctx context.Context, p Page, search string) ([]OrgRow, int, error) {
	const countQ = `SELECT COUNT(*) FROM organizations
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR slug ILIKE '%' || $1 || '%')`
	var total int
	if err := r.pool.QueryRow(ctx, countQ, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `SELECT o.id, o.name, o.slug, o.credits,
			(SELECT COUNT(*) FROM organization_members m WHERE m.organization_id = o.id),
			o.deleted_at, o.created_at
		FROM organizations o
		WHERE ($1 = '' OR o.name ILIKE '%' || $1 || '%' OR o.slug ILIKE '%' || $1 || '%')
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, search, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []OrgRow
	for rows.Next() {
		var o OrgRow
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.Credits, &o.MemberCount, &o.DeletedAt, &o.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// SubscriptionRow is a subscription listing entry.
type SubscriptionRow struct {
	ID               uuid.UUID `json:"id"`
	OrganizationID   uuid.UUID `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	PlanID           string    `json:"plan_id"`
	Status           string    `json:"status"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
}

// ListSubscriptions returns a page of subscriptions, newest first.
func (r *Repository) ListSubscriptions(ctx context.Context, p Page) ([]SubscriptionRow, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `SELECT s.id, s.organization_id, o.name, s.plan_id, s.status, s.current_period_end
		FROM subscriptions s
		INNER JOIN organizations o ON o.id = s.organization_id
		ORDER BY s.created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, q, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []SubscriptionRow
	for rows.Next() {
		var s SubscriptionRow
		if err := rows.Scan(&s.ID, &s.OrganizationID, &s.OrganizationName, &s.PlanID, &s.Status, &s.CurrentPeriodEnd); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// OrgDetail is the admin view of one organization.
type OrgDetail struct {
	Organization models.Organization  `json:"organization"`
	Members      []OrgDetailMember    `json:"members"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// OrgDetailMember is a member entry in the admin org detail.
type OrgDetailMember struct {
	UserID uuid.UUID      `json:"user_id"`
	Email  string         `json:"email"`
	Role   models.OrgRole `json:"role"`
}

// GetOrgDetail returns an organization with members and active subscription,
// or nil when the organization does not exist.
func (r *Repository) GetOrgDetail(ctx context.Context, orgID uuid.UUID) (*OrgDetail, error) {
	const orgQ = `SELECT id, name, slug, credits, is_primary, COALESCE(stripe_customer_id,''),
			last_free_refill_at, low_credit_notified, deleted_at, created_at, updated_at
		FROM organizations WHERE id = $1`
	var d OrgDetail
	err := r.pool.QueryRow(ctx, orgQ, orgID).Scan(
		&d.Organization.ID, &d.Organization.Name, &d.Organization.Slug, &d.Organization.Credits,
		&d.Organization.IsPrimary, &d.Organization.StripeCustomerID, &d.Organization.LastFreeRefillAt,
		&d.Organization.LowCreditNotified, &d.Organization.DeletedAt,
		&d.Organization.CreatedAt, &d.Organization.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	const memberQ = `SELECT m.user_id, u.email, m.role
		FROM organization_members m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.created_at ASC`
	rows, err := r.pool.Query(ctx, memberQ, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m OrgDetailMember
		if err := rows.Scan(&m.UserID, &m.Email, &m.Role); err != nil {
			return nil, err
		}
		d.Members = append(d.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const subQ = `SELECT id, organization_id, provider_subscription_id, plan_id, status,
			current_period_start, current_period_end, renewal_reminder_sent, canceled_at, created_at, updated_at
		FROM subscriptions WHERE organization_id = $1 AND status = 'active'`
	var sub models.Subscription
	err = r.pool.QueryRow(ctx, subQ, orgID).Scan(&sub.ID, &sub.OrganizationID,
		&sub.ProviderSubscriptionID, &sub.PlanID, &sub.Status, &sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd, &sub.RenewalReminderSent, &sub.CanceledAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err == nil {
		d.Subscription = &sub
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return &d, nil
}
