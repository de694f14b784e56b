package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/pkg/apperr"
)

func TestHasPermissionFullTable(t *testing.T) {
	allActions := []Action{
		ActionOrgUpdate, ActionOrgDelete, ActionOrgTransfer,
		ActionMemberInvite, ActionMemberRemove, ActionMemberUpdate,
		ActionProjectCreate, ActionProjectUpdate, ActionProjectDelete,
	}
	allowed := map[models.OrgRole]map[Action]bool{
		models.OrgRoleOwner: {
			ActionOrgUpdate: true, ActionOrgDelete: true, ActionOrgTransfer: true,
			ActionMemberInvite: true, ActionMemberRemove: true, ActionMemberUpdate: true,
			ActionProjectCreate: true, ActionProjectUpdate: true, ActionProjectDelete: true,
		},
		models.OrgRoleAdmin: {
			ActionOrgUpdate: true, ActionOrgDelete: false, ActionOrgTransfer: false,
			ActionMemberInvite: true, ActionMemberRemove: true, ActionMemberUpdate: true,
			ActionProjectCreate: true, ActionProjectUpdate: true, ActionProjectDelete: true,
		},
		models.OrgRoleMember: {
			ActionOrgUpdate: false, ActionOrgDelete: false, ActionOrgTransfer: false,
			ActionMemberInvite: false, ActionMemberRemove: false, ActionMemberUpdate: false,
			ActionProjectCreate: true, ActionProjectUpdate: true, ActionProjectDelete: false,
		},
	}
	for role, table := range allowed {
		for _, action := range allActions {
			assert.Equalf(t, table[action], HasPermission(role, action),
				"role=%s action=%s", role, action)
		}
	}
}

func TestHasPermissionUnknownRole(t *testing.T) {
	assert.False(t, HasPermission(models.OrgRole("ghost"), ActionProjectCreate))
}

func TestAuthorize(t *testing.T) {
	assert.NoError(t, Authorize(models.OrgRoleMember, ActionProjectCreate))
	assert.NoError(t, Authorize(models.OrgRoleAdmin, ActionMemberInvite))

	err := Authorize(models.OrgRoleMember, ActionMemberInvite)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Contains(t, err.Error(), string(ActionMemberInvite))

	assert.Error(t, Authorize(models.OrgRoleAdmin, ActionOrgDelete))
	assert.Error(t, Authorize(models.OrgRole(""), ActionProjectCreate))
}

func TestSatisfies(t *testing.T) {
	assert.True(t, Satisfies(models.OrgRoleOwner, models.OrgRoleOwner))
	assert.True(t, Satisfies(models.OrgRoleOwner, models.OrgRoleAdmin))
	assert.True(t, Satisfies(models.OrgRoleOwner, models.OrgRoleMember))
	assert.True(t, Satisfies(models.OrgRoleAdmin, models.OrgRoleMember))
	assert.False(t, Satisfies(models.OrgRoleAdmin, models.OrgRoleOwner))
	assert.False(t, Satisfies(models.OrgRoleMember, models.OrgRoleAdmin))
	assert.False(t, Satisfies(models.OrgRole(""), models.OrgRoleMember))
}

type fakeMembershipStore struct {
	roles map[uuid.UUID]models.OrgRole // keyed by user
	err   error
}

func (f *fakeMembershipStore) GetMemberRole(_ context.Context, _, userID uuid.UUID) (models.OrgRole, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.roles[userID], nil
}

func TestRequireOrgRoleOwnerSatisfiesAll(t *testing.T) {
	orgID, userID := uuid.New(), uuid.New()
	store := &fakeMembershipStore{roles: map[uuid.UUID]models.OrgRole{userID: models.OrgRoleOwner}}
	for _, min := range []models.OrgRole{models.OrgRoleMember, models.OrgRoleAdmin, models.OrgRoleOwner} {
		role, err := RequireOrgRole(context.Background(), store, orgID, userID, min)
		require.NoError(t, err)
		assert.Equal(t, models.OrgRoleOwner, role)
	}
}

func TestRequireOrgRoleMember(t *testing.T) {
	orgID, userID := uuid.New(), uuid.New()
	store := &fakeMembershipStore{roles: map[uuid.UUID]models.OrgRole{userID: models.OrgRoleMember}}

	role, err := RequireOrgRole(context.Background(), store, orgID, userID, models.OrgRoleMember)
	require.NoError(t, err)
	assert.Equal(t, models.OrgRoleMember, role)

	_, err = RequireOrgRole(context.Background(), store, orgID, userID, models.OrgRoleAdmin)
	assert.ErrorIs(t, err, ErrInsufficientRole)

	_, err = RequireOrgRole(context.Background(), store, orgID, userID, models.OrgRoleOwner)
	assert.ErrorIs(t, err, ErrInsufficientRole)
}

func TestRequireOrgRoleNotAMember(t *testing.T) {
	store := &fakeMembershipStore{roles: map[uuid.UUID]models.OrgRole{}}
	for _, min := range []models.OrgRole{models.OrgRoleMember, models.OrgRoleAdmin, models.OrgRoleOwner} {
		_, err := RequireOrgRole(context.Background(), store, uuid.New(), uuid.New(), min)
		assert.ErrorIs(t, err, ErrNotAMember)
	}
}

func TestRequireOrgRoleStoreError(t *testing.T) {
	boom := errors.New("connection reset")
	store := &fakeMembershipStore{err: boom}
	_, err := RequireOrgRole(context.Background(), store, uuid.New(), uuid.New(), models.OrgRoleMember)
	assert.ErrorIs(t, err, boom)
}
