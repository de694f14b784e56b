package rbac

import (
	"context"

	"github.com/google/uuid"

	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/pkg/apperr"
)

// Action is a fine-grained permission checked by business rules.
type Action string

const (
	ActionOrgUpdate     Action = "org:update"
	ActionOrgDelete     Action = "org:delete"
	ActionOrgTransfer   Action = "org:transfer"
	ActionMemberInvite  Action = "member:invite"
	ActionMemberRemove  Action = "member:remove"
	ActionMemberUpdate  Action = "member:update"
	ActionProjectCreate Action = "project:create"
	ActionProjectUpdate Action = "project:update"
	ActionProjectDelete Action = "project:delete"
)

// permissions maps each role to the set of actions it may perform.
var permissions = map[models.OrgRole]map[Action]struct{}{
	models.OrgRoleOwner: actionSet(
		ActionOrgUpdate, ActionOrgDelete, ActionOrgTransfer,
		ActionMemberInvite, ActionMemberRemove, ActionMemberUpdate,
		ActionProjectCreate, ActionProjectUpdate, ActionProjectDelete,
	),
	models.OrgRoleAdmin: actionSet(
		ActionOrgUpdate,
		ActionMemberInvite, ActionMemberRemove, ActionMemberUpdate,
		ActionProjectCreate, ActionProjectUpdate, ActionProjectDelete,
	),
	models.OrgRoleMember: actionSet(
		ActionProjectCreate, ActionProjectUpdate,
	),
}

func actionSet(actions ...Action) map[Action]struct{} {
	s := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		s[a] = struct{}{}
	}
	return s
}

// HasPermission reports whether role may perform action. Pure lookup.
func HasPermission(role models.OrgRole, action Action) bool {
	set, ok := permissions[role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// Authorize gates a service-layer mutation on the permission table. The route
// guards enforce the coarse role tier; Authorize enforces the exact action
// grant, so the two can disagree only in the stricter direction.
func Authorize(role models.OrgRole, action Action) error {
	if !HasPermission(role, action) {
		return apperr.Newf(apperr.KindForbidden, "your role does not permit %s", string(action))
	}
	return nil
}

// Level returns the position of role in the hierarchy owner > admin > member.
// Unknown roles rank below member.
func Level(role models.OrgRole) int {
	switch role {
	case models.OrgRoleOwner:
		return 2
	case models.OrgRoleAdmin:
		return 1
	case models.OrgRoleMember:
		return 0
	}
	return -1
}

// Satisfies reports whether role meets min in the hierarchy.
func Satisfies(role, min models.OrgRole) bool {
	return Level(role) >= Level(min)
}

var (
	// ErrNotAMember is returned when the user has no membership in the org.
	ErrNotAMember = apperr.Forbidden("Not a member of this organization")
	// ErrInsufficientRole is returned when membership exists but is below the
	// required minimum.
	ErrInsufficientRole = apperr.Forbidden("insufficient role")
)

// MembershipStore resolves a user's role within an organization. An empty
// role with nil error means no membership row exists.
type MembershipStore interface {
	GetMemberRole(ctx context.Context, orgID, userID uuid.UUID) (models.OrgRole, error)
}

// RequireOrgRole resolves the caller's membership and enforces a minimum
// role. It returns the caller's actual role, which may exceed min.
func RequireOrgRole(ctx context.Context, store MembershipStore, orgID, userID uuid.UUID, min models.OrgRole) (models.OrgRole, error) {
	role, err := store.GetMemberRole(ctx, orgID, userID)
	if err != nil {
		return "", err
	}
	if role == "" {
		return "", ErrNotAMember
	}
	if !Satisfies(role, min) {
		return "", ErrInsufficientRole
	}
	return role, nil
}
