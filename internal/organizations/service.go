package organizations

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nimbus-saas/backend/config"
	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/internal/rbac"
	"github.com/nimbus-saas/backend/pkg/apperr"
	"github.com/nimbus-saas/backend/pkg/utils"
)

// Store is the persistence surface the organization service depends on.
// Implemented by *Repository; faked in tests.
type Store interface {
	CreateOrganization(ctx context.Context, org *models.Organization, ownerID uuid.UUID) error
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error)
	UpdateOrganizationName(ctx context.Context, id uuid.UUID, name string) error
	SoftDeleteOrganization(ctx context.Context, id uuid.UUID) error
	CountOwnedActive(ctx context.Context, userID uuid.UUID) (int, error)
	AddCredits(ctx context.Context, orgID uuid.UUID, delta int) error

	GetMemberRole(ctx context.Context, orgID, userID uuid.UUID) (models.OrgRole, error)
	GetMember(ctx context.Context, orgID, userID uuid.UUID) (*models.OrganizationMember, error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error)
	UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role models.OrgRole) error
	// RemoveMember deletes the membership inside a transaction that re-checks
	// the owner count; it returns ErrLastOwner when the target is the sole owner.
	RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error

	CountPendingInvites(ctx context.Context, orgID uuid.UUID) (int, error)
	CreateInvite(ctx context.Context, inv *models.OrganizationInvite) error
	ListInvites(ctx context.Context, orgID uuid.UUID) ([]*models.OrganizationInvite, error)
	GetInvite(ctx context.Context, id uuid.UUID) (*models.OrganizationInvite, error)
	GetInviteByToken(ctx context.Context, token string) (*models.OrganizationInvite, error)
	UpdateInviteStatus(ctx context.Context, id uuid.UUID, status models.InviteStatus) error
	RefreshInvite(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	DeleteInvite(ctx context.Context, id uuid.UUID) error
	// AcceptInvite adds the member and marks the invite accepted inside one
	// transaction, re-checking the member cap at write time.
	AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID, role models.OrgRole, maxMembers int) error

	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetActiveSubscription(ctx context.Context, orgID uuid.UUID) (*models.Subscription, error)
}

// SubscriptionCanceler cancels an external subscription by provider id.
type SubscriptionCanceler interface {
	CancelSubscription(ctx context.Context, providerSubscriptionID string) error
}

// Mailer delivers invite notifications. Best-effort: failures are logged,
// never surfaced.
type Mailer interface {
	SendInvite(ctx context.Context, to, orgName, token string) error
}

// Service applies the tenant-limit and abuse-prevention rules around
// organization, member and invite mutations.
type Service struct {
	store    Store
	limiter  InviteRateLimiter
	limits   config.LimitsConfig
	canceler SubscriptionCanceler
	mailer   Mailer
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an organization service.
func NewService(store Store, limiter InviteRateLimiter, limits config.LimitsConfig, canceler SubscriptionCanceler, mailer Mailer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		limiter:  limiter,
		limits:   limits,
		canceler: canceler,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

// Create creates an organization with the caller as owner. The caller's
// first active owned organization becomes primary and is seeded with the
// starting credit grant; every later one starts at zero. Both the cap and
// the primary decision count owner-role organizations that are not
// soft-deleted, re-read at mutation time.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, name string) (*models.Organization, error) {
	if err := models.ValidateName(name); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	owned, err := s.store.CountOwnedActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if owned >= s.limits.MaxOrgsPerUser {
		return nil, apperr.Newf(apperr.KindPreconditionFailed,
			"Limit reached: you can own at most %d organizations", s.limits.MaxOrgsPerUser)
	}

	org := &models.Organization{
		Name: name,
		Slug: slugify(name),
	}
	if owned == 0 {
		org.IsPrimary = true
		org.Credits = s.limits.StartingCredits
	}
	if err := s.store.CreateOrganization(ctx, org, userID); err != nil {
		return nil, err
	}
	return org, nil
}

// List returns the caller's organizations.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	return s.store.ListForUser(ctx, userID)
}

// Get returns an organization visible to the caller. Soft-deleted or absent
// organizations, and organizations the caller is not a member of, read as
// not found.
func (s *Service) Get(ctx context.Context, orgID, userID uuid.UUID) (*models.Organization, error) {
	role, err := s.store.GetMemberRole(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, apperr.NotFound("Organization not found")
	}
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil || org.DeletedAt != nil {
		return nil, apperr.NotFound("Organization not found")
	}
	return org, nil
}

// UpdateName renames the organization.
func (s *Service) UpdateName(ctx context.Context, orgID uuid.UUID, actorRole models.OrgRole, name string) error {
	if err := rbac.Authorize(actorRole, rbac.ActionOrgUpdate); err != nil {
		return err
	}
	if err := models.ValidateName(name); err != nil {
		return err
	}
	return s.store.UpdateOrganizationName(ctx, orgID, strings.TrimSpace(name))
}

// Delete soft-deletes the organization. When transferTo is set the caller
// must own the target organization; the source's full credit balance moves
// there first. An active external subscription is canceled best-effort;
// cancellation failure never blocks the delete.
func (s *Service) Delete(ctx context.Context, orgID, callerID uuid.UUID, actorRole models.OrgRole, transferTo *uuid.UUID) error {
	if err := rbac.Authorize(actorRole, rbac.ActionOrgDelete); err != nil {
		return err
	}
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	if org == nil || org.DeletedAt != nil {
		return apperr.NotFound("Organization not found")
	}

	if transferTo != nil && *transferTo != orgID {
		if err := rbac.Authorize(actorRole, rbac.ActionOrgTransfer); err != nil {
			return err
		}
		if _, err := rbac.RequireOrgRole(ctx, s.store, *transferTo, callerID, models.OrgRoleOwner); err != nil {
			return apperr.Forbidden("you must own the transfer-target organization")
		}
		target, err := s.store.GetOrganization(ctx, *transferTo)
		if err != nil {
			return err
		}
		if target == nil || target.DeletedAt != nil {
			return apperr.NotFound("transfer-target organization not found")
		}
		if org.Credits > 0 {
			if err := s.store.AddCredits(ctx, *transferTo, org.Credits); err != nil {
				return err
			}
		}
	}

	sub, err := s.store.GetActiveSubscription(ctx, orgID)
	if err != nil {
		s.logger.Warn("look up subscription on org delete",
			zap.String("org_id", orgID.String()), zap.Error(err))
	} else if sub != nil {
		if err := s.canceler.CancelSubscription(ctx, sub.ProviderSubscriptionID); err != nil {
			s.logger.Warn("cancel subscription on org delete",
				zap.String("org_id", orgID.String()), zap.Error(err))
		}
	}

	return s.store.SoftDeleteOrganization(ctx, orgID)
}

// ListMembers returns the organization's members.
func (s *Service) ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error) {
	return s.store.ListMembers(ctx, orgID)
}

// UpdateMemberRole changes a member's role. The owner role can never be
// granted here, and a member who currently holds owner can never be changed.
func (s *Service) UpdateMemberRole(ctx context.Context, orgID uuid.UUID, actorRole models.OrgRole, targetUserID uuid.UUID, newRole models.OrgRole) error {
	if err := rbac.Authorize(actorRole, rbac.ActionMemberUpdate); err != nil {
		return err
	}
	if newRole == models.OrgRoleOwner {
		return apperr.BadRequest("the owner role cannot be granted")
	}
	if newRole != models.OrgRoleAdmin && newRole != models.OrgRoleMember {
		return apperr.BadRequest("invalid role")
	}
	member, err := s.store.GetMember(ctx, orgID, targetUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperr.NotFound("member not found")
	}
	if member.Role == models.OrgRoleOwner {
		return apperr.BadRequest("the owner's role cannot be changed")
	}
	return s.store.UpdateMemberRole(ctx, orgID, targetUserID, newRole)
}

// RemoveMember removes a member. The store enforces last-owner protection
// transactionally; ErrLastOwner surfaces as a precondition failure.
func (s *Service) RemoveMember(ctx context.Context, orgID uuid.UUID, actorRole models.OrgRole, targetUserID uuid.UUID) error {
	if err := rbac.Authorize(actorRole, rbac.ActionMemberRemove); err != nil {
		return err
	}
	member, err := s.store.GetMember(ctx, orgID, targetUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperr.NotFound("member not found")
	}
	return s.store.RemoveMember(ctx, orgID, targetUserID)
}

// InviteMember creates a pending invite. Check order: disposable-domain
// rejection first, then the pending-invite cap and the existing-member
// conflict; the per-actor cooldown is claimed last, so an invite rejected by
// an earlier guard never burns the actor's window. The invite email is sent
// best-effort.
func (s *Service) InviteMember(ctx context.Context, orgID, inviterID uuid.UUID, actorRole models.OrgRole, email string, role models.OrgRole) (*models.OrganizationInvite, error) {
	if err := rbac.Authorize(actorRole, rbac.ActionMemberInvite); err != nil {
		return nil, err
	}
	if role != models.OrgRoleAdmin && role != models.OrgRoleMember {
		return nil, apperr.BadRequest("invite role must be admin or member")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.BadRequest("email is required")
	}
	if IsDisposableEmail(email) {
		return nil, apperr.BadRequest("disposable email addresses are not allowed")
	}

	pending, err := s.store.CountPendingInvites(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if pending >= s.limits.MaxPendingInvites {
		return nil, apperr.Newf(apperr.KindPreconditionFailed,
			"Limit reached: at most %d pending invites per organization", s.limits.MaxPendingInvites)
	}

	if user, err := s.store.GetUserByEmail(ctx, email); err != nil {
		return nil, err
	} else if user != nil {
		role, err := s.store.GetMemberRole(ctx, orgID, user.ID)
		if err != nil {
			return nil, err
		}
		if role != "" {
			return nil, apperr.Conflict("this user is already a member of the organization")
		}
	}

	ok, err := s.limiter.Allow(ctx, orgID, inviterID)
	if err != nil {
		// The throttle is best-effort; a broken limiter must not take the
		// invite flow down with it.
		s.logger.Warn("invite rate limiter", zap.Error(err))
	} else if !ok {
		return nil, apperr.PreconditionFailed("rate limited: wait before sending another invite")
	}

	token, err := utils.NewInviteToken()
	if err != nil {
		return nil, err
	}
	inv := &models.OrganizationInvite{
		OrganizationID: orgID,
		InviterID:      inviterID,
		Email:          email,
		Role:           role,
		Token:          token,
		Status:         models.InviteStatusPending,
		ExpiresAt:      s.now().Add(s.limits.InviteExpiry),
	}
	if err := s.store.CreateInvite(ctx, inv); err != nil {
		return nil, err
	}

	if org, err := s.store.GetOrganization(ctx, orgID); err == nil && org != nil {
		if err := s.mailer.SendInvite(ctx, email, org.Name, token); err != nil {
			s.logger.Warn("send invite email", zap.String("email", email), zap.Error(err))
		}
	}
	return inv, nil
}

// ListInvites returns the organization's invites, lazily expiring stale
// pending ones.
func (s *Service) ListInvites(ctx context.Context, orgID uuid.UUID) ([]*models.OrganizationInvite, error) {
	invites, err := s.store.ListInvites(ctx, orgID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, inv := range invites {
		if inv.Status == models.InviteStatusPending && inv.Expired(now) {
			inv.Status = models.InviteStatusExpired
			if err := s.store.UpdateInviteStatus(ctx, inv.ID, models.InviteStatusExpired); err != nil {
				s.logger.Warn("expire invite", zap.String("invite_id", inv.ID.String()), zap.Error(err))
			}
		}
	}
	return invites, nil
}

// RevokeInvite marks a pending invite revoked.
func (s *Service) RevokeInvite(ctx context.Context, orgID uuid.UUID, actorRole models.OrgRole, inviteID uuid.UUID) error {
	if err := rbac.Authorize(actorRole, rbac.ActionMemberInvite); err != nil {
		return err
	}
	inv, err := s.inviteInOrg(ctx, orgID, inviteID)
	if err != nil {
		return err
	}
	if inv.Status != models.InviteStatusPending {
		return apperr.PreconditionFailed("only pending invites can be revoked")
	}
	return s.store.UpdateInviteStatus(ctx, inviteID, models.InviteStatusRevoked)
}

// ResendInvite replaces a pending invite's token and expiry and re-sends the
// email.
func (s *Service) ResendInvite(ctx context.Context, orgID uuid.UUID, actorRole models.OrgRole, inviteID uuid.UUID) (*models.OrganizationInvite, error) {
	if err := rbac.Authorize(actorRole, rbac.ActionMemberInvite); err != nil {
		return nil, err
	}
	inv, err := s.inviteInOrg(ctx, orgID, inviteID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InviteStatusPending {
		return nil, apperr.PreconditionFailed("only pending invites can be resent")
	}
	token, err := utils.NewInviteToken()
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.limits.InviteExpiry)
	if err := s.store.RefreshInvite(ctx, inviteID, token, expiresAt); err != nil {
		return nil, err
	}
	inv.Token = token
	inv.ExpiresAt = expiresAt

	if org, err := s.store.GetOrganization(ctx, orgID); err == nil && org != nil {
		if err := s.mailer.SendInvite(ctx, inv.Email, org.Name, token); err != nil {
			s.logger.Warn("resend invite email", zap.String("email", inv.Email), zap.Error(err))
		}
	}
	return inv, nil
}

// DeleteInvite removes an invite entirely.
func (s *Service) DeleteInvite(ctx context.Context, orgID uuid.UUID, actorRole models.OrgRole, inviteID uuid.UUID) error {
	if err := rbac.Authorize(actorRole, rbac.ActionMemberInvite); err != nil {
		return err
	}
	if _, err := s.inviteInOrg(ctx, orgID, inviteID); err != nil {
		return err
	}
	return s.store.DeleteInvite(ctx, inviteID)
}

// AcceptInvite redeems an invite token for the calling user. The member
// insert re-checks the member cap inside the store transaction.
func (s *Service) AcceptInvite(ctx context.Context, token string, userID uuid.UUID, userEmail string) (*models.OrganizationInvite, error) {
	inv, err := s.store.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apperr.NotFound("Invite not found")
	}
	if inv.Status != models.InviteStatusPending {
		return nil, apperr.PreconditionFailed("invite is no longer valid")
	}
	if inv.Expired(s.now()) {
		if err := s.store.UpdateInviteStatus(ctx, inv.ID, models.InviteStatusExpired); err != nil {
			s.logger.Warn("expire invite", zap.String("invite_id", inv.ID.String()), zap.Error(err))
		}
		return nil, apperr.PreconditionFailed("invite has expired")
	}
	if !strings.EqualFold(inv.Email, userEmail) {
		return nil, apperr.Forbidden("this invite was issued to a different email")
	}
	if err := s.store.AcceptInvite(ctx, inv.ID, userID, inv.Role, s.limits.MaxMembersPerOrg); err != nil {
		return nil, err
	}
	inv.Status = models.InviteStatusAccepted
	return inv, nil
}

// DeclineInvite marks a pending invite declined by its token holder.
func (s *Service) DeclineInvite(ctx context.Context, token string, userEmail string) error {
	inv, err := s.store.GetInviteByToken(ctx, token)
	if err != nil {
		return err
	}
	if inv == nil {
		return apperr.NotFound("Invite not found")
	}
	if inv.Status != models.InviteStatusPending {
		return apperr.PreconditionFailed("invite is no longer valid")
	}
	if !strings.EqualFold(inv.Email, userEmail) {
		return apperr.Forbidden("this invite was issued to a different email")
	}
	return s.store.UpdateInviteStatus(ctx, inv.ID, models.InviteStatusDeclined)
}

func (s *Service) inviteInOrg(ctx context.Context, orgID, inviteID uuid.UUID) (*models.OrganizationInvite, error) {
	inv, err := s.store.GetInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.OrganizationID != orgID {
		return nil, apperr.NotFound("Invite not found")
	}
	return inv, nil
}

// slugify derives a unique-ish slug from the name; uniqueness is ultimately
// enforced by the database constraint.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "org"
	}
	return slug + "-" + utils.RandomSuffix()
}
