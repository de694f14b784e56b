package organizations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/pkg/apperr"
)

// ErrLastOwner is returned when removing a member would leave the
// organization without an owner.
var ErrLastOwner = apperr.PreconditionFailed("cannot remove the last owner of an organization")

// Repository handles organization, membership and invite persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orgColumns = `id, name, slug, credits, is_primary, COALESCE(stripe_customer_id,''),
	last_free_refill_at, low_credit_notified, deleted_at, created_at, updated_at`

func scanOrg(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Credits, &o.IsPrimary, &o.StripeCustomerID,
		&o.LastFreeRefillAt, &o.LowCreditNotified, &o.DeletedAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrganization inserts the organization and its owner membership in one
// transaction.
func (r *Repository) CreateOrganization(ctx context.Context, org *models.Organization, ownerID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertOrg = `INSERT INTO organizations (name, slug, credits, is_primary)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertOrg, org.Name, org.Slug, org.Credits, org.IsPrimary).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return err
	}
	const insertMember = `INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, insertMember, org.ID, ownerID, models.OrgRoleOwner); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetOrganization returns an organization by ID including soft-deleted rows;
// callers decide on visibility. Nil if absent.
func (r *Repository) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return scanOrg(r.pool.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id))
}

// ListForUser returns active organizations the user is a member of.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	const q = `SELECT o.id, o.name, o.slug, o.credits, o.is_primary, COALESCE(o.stripe_customer_id,''),
			o.last_free_refill_at, o.low_credit_notified, o.deleted_at, o.created_at, o.updated_at
		FROM organizations o
		INNER JOIN organization_members m ON m.organization_id = o.id
		WHERE m.user_id = $1 AND o.deleted_at IS NULL
		ORDER BY o.created_at`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, org)
	}
	return list, rows.Err()
}

// UpdateOrganizationName renames an active organization.
func (r *Repository) UpdateOrganizationName(ctx context.Context, id uuid.UUID, name string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE organizations SET name = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id, name)
	return err
}

// SoftDeleteOrganization marks the organization deleted.
func (r *Repository) SoftDeleteOrganization(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE organizations SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		id)
	return err
}

// CountOwnedActive counts non-deleted organizations where the user holds the
// owner role.
func (r *Repository) CountOwnedActive(ctx context.Context, userID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*)
		FROM organization_members m
		INNER JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1 AND m.role = 'owner' AND o.deleted_at IS NULL`
	var n int
	err := r.pool.QueryRow(ctx, q, userID).Scan(&n)
	return n, err
}

// AddCredits atomically adds delta to the organization's balance.
func (r *Repository) AddCredits(ctx context.Context, orgID uuid.UUID, delta int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE organizations SET credits = credits + $2, updated_at = NOW() WHERE id = $1`,
		orgID, delta)
	return err
}

// GetMemberRole returns the user's role in the organization, or empty if not
// a member.
func (r *Repository) GetMemberRole(ctx context.Context, orgID, userID uuid.UUID) (models.OrgRole, error) {
	const q = `SELECT role FROM organization_members WHERE organization_id = $1 AND user_id = $2`
	var role models.OrgRole
	err := r.pool.QueryRow(ctx, q, orgID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// GetMember returns a membership row, or nil if absent.
func (r *Repository) GetMember(ctx context.Context, orgID, userID uuid.UUID) (*models.OrganizationMember, error) {
	const q = `SELECT id, organization_id, user_id, role, created_at, updated_at
		FROM organization_members WHERE organization_id = $1 AND user_id = $2`
	var m models.OrganizationMember
	err := r.pool.QueryRow(ctx, q, orgID, userID).
		Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Member is an organization member with user details for listings.
type Member struct {
	ID       uuid.UUID      `json:"id"`
	UserID   uuid.UUID      `json:"user_id"`
	Email    string         `json:"email"`
	FullName string         `json:"full_name"`
	Role     models.OrgRole `json:"role"`
	AddedAt  time.Time      `json:"added_at"`
}

// ListMembers returns members of an organization joined with user details.
func (r *Repository) ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error) {
	const q = `SELECT m.id, m.user_id, u.email, u.full_name, m.role, m.created_at
		FROM organization_members m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.created_at ASC`
	rows, err := r.pool.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.Email, &m.FullName, &m.Role, &m.AddedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// UpdateMemberRole sets a member's role.
func (r *Repository) UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role models.OrgRole) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE organization_members SET role = $3, updated_at = NOW()
		 WHERE organization_id = $1 AND user_id = $2`,
		orgID, userID, role)
	return err
}

// RemoveMember deletes the membership. The owner count is re-checked inside
// the transaction so two concurrent removals cannot strip the last owner.
func (r *Repository) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var role models.OrgRole
	err = tx.QueryRow(ctx,
		`SELECT role FROM organization_members
		 WHERE organization_id = $1 AND user_id = $2 FOR UPDATE`,
		orgID, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("member not found")
	}
	if err != nil {
		return err
	}
	if role == models.OrgRoleOwner {
		var owners int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM organization_members WHERE organization_id = $1 AND role = 'owner'`,
			orgID).Scan(&owners); err != nil {
			return err
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`,
		orgID, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CountPendingInvites counts invites with pending status.
func (r *Repository) CountPendingInvites(ctx context.Context, orgID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM organization_invites WHERE organization_id = $1 AND status = 'pending'`,
		orgID).Scan(&n)
	return n, err
}

// CreateInvite inserts an invite.
func (r *Repository) CreateInvite(ctx context.Context, inv *models.OrganizationInvite) error {
	const q = `INSERT INTO organization_invites (organization_id, inviter_id, email, role, token, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, inv.OrganizationID, inv.InviterID, inv.Email, inv.Role,
		inv.Token, inv.Status, inv.ExpiresAt).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
}

const inviteColumns = `id, organization_id, inviter_id, email, role, token, status, expires_at, created_at, updated_at`

func scanInvite(row pgx.Row) (*models.OrganizationInvite, error) {
	var i models.OrganizationInvite
	err := row.Scan(&i.ID, &i.OrganizationID, &i.InviterID, &i.Email, &i.Role, &i.Token,
		&i.Status, &i.ExpiresAt, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// ListInvites returns all invites for an organization, newest first.
func (r *Repository) ListInvites(ctx context.Context, orgID uuid.UUID) ([]*models.OrganizationInvite, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+inviteColumns+` FROM organization_invites
		 WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.OrganizationInvite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// GetInvite returns an invite by ID, or nil.
func (r *Repository) GetInvite(ctx context.Context, id uuid.UUID) (*models.OrganizationInvite, error) {
	return scanInvite(r.pool.QueryRow(ctx,
		`SELECT `+inviteColumns+` FROM organization_invites WHERE id = $1`, id))
}

// GetInviteByToken returns an invite by token, or nil.
func (r *Repository) GetInviteByToken(ctx context.Context, token string) (*models.OrganizationInvite, error) {
	return scanInvite(r.pool.QueryRow(ctx,
		`SELECT `+inviteColumns+` FROM organization_invites WHERE token = $1`, token))
}

// UpdateInviteStatus sets an invite's status.
func (r *Repository) UpdateInviteStatus(ctx context.Context, id uuid.UUID, status models.InviteStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE organization_invites SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	return err
}

// RefreshInvite replaces an invite's token and expiry.
func (r *Repository) RefreshInvite(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE organization_invites SET token = $2, expires_at = $3, updated_at = NOW() WHERE id = $1`,
		id, token, expiresAt)
	return err
}

// DeleteInvite removes an invite row.
func (r *Repository) DeleteInvite(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM organization_invites WHERE id = $1`, id)
	return err
}

// AcceptInvite inserts the membership and marks the invite accepted in one
// transaction, re-checking the member cap at write time.
func (r *Repository) AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID, role models.OrgRole, maxMembers int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var inv models.OrganizationInvite
	err = tx.QueryRow(ctx,
		`SELECT id, organization_id, status FROM organization_invites WHERE id = $1 FOR UPDATE`,
		inviteID).Scan(&inv.ID, &inv.OrganizationID, &inv.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Invite not found")
	}
	if err != nil {
		return err
	}
	if inv.Status != models.InviteStatusPending {
		return apperr.PreconditionFailed("invite is no longer valid")
	}

	var existing int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM organization_members WHERE organization_id = $1 AND user_id = $2`,
		inv.OrganizationID, userID).Scan(&existing); err != nil {
		return err
	}
	if existing > 0 {
		return apperr.Conflict("you are already a member of this organization")
	}

	var members int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM organization_members WHERE organization_id = $1`,
		inv.OrganizationID).Scan(&members); err != nil {
		return err
	}
	if members >= maxMembers {
		return apperr.Newf(apperr.KindPreconditionFailed,
			"Limit reached: at most %d members per organization", maxMembers)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO organization_members (organization_id, user_id, role) VALUES ($1, $2, $3)`,
		inv.OrganizationID, userID, role); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE organization_invites SET status = 'accepted', updated_at = NOW() WHERE id = $1`,
		inviteID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetUserByEmail returns a user by email, or nil. Used by the
// existing-member invite check.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, email, password_hash, full_name, created_at, updated_at
		FROM users WHERE email = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, email).
		Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetActiveSubscription returns the organization's active subscription, or
// nil.
func (r *Repository) GetActiveSubscription(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error) {
	const q = `SELECT id, organization_id, provider_subscription_id, plan_id, status,
			current_period_start, current_period_end, renewal_reminder_sent, canceled_at, created_at, updated_at
		FROM subscriptions WHERE organization_id = $1 AND status = 'active'
		ORDER BY created_at DESC LIMIT 1`
	var s models.Subscription
	err := r.pool.QueryRow(ctx, q, orgID).
		Scan(&s.ID, &s.OrganizationID, &s.ProviderSubscriptionID, &s.PlanID, &s.Status,
			&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.RenewalReminderSent, &s.CanceledAt,
			&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
