package projects

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-saas/backend/config"
	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/pkg/apperr"
)

type fakeStore struct {
	byOrg map[uuid.UUID][]*models.Project
}

func newFakeStore() *fakeStore {
	return &fakeStore{byOrg: make(map[uuid.UUID][]*models.Project)}
}

func (f *fakeStore) Create(_ context.Context, p *models.Project) error {
	p.ID = uuid.New()
	f.byOrg[p.OrganizationID] = append(f.byOrg[p.OrganizationID], p)
	return nil
}

func (f *fakeStore) List(_ context.Context, orgID uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.byOrg[orgID] {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) GetBySlug(_ context.Context, orgID uuid.UUID, slug string) (*models.Project, error) {
	for _, p := range f.byOrg[orgID] {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Count(_ context.Context, orgID uuid.UUID) (int, error) {
	return len(f.byOrg[orgID]), nil
}

func (f *fakeStore) UpdateName(_ context.Context, orgID uuid.UUID, slug, name string) (int64, error) {
	for _, p := range f.byOrg[orgID] {
		if p.Slug == slug {
			p.Name = name
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeStore) Delete(_ context.Context, orgID uuid.UUID, slug string) (int64, error) {
	list := f.byOrg[orgID]
	for i, p := range list {
		if p.Slug == slug {
			f.byOrg[orgID] = append(list[:i], list[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func newTestService(store Store) *Service {
	return NewService(store, config.LimitsConfig{MaxProjectsPerOrg: 10})
}

func TestCreateProject(t *testing.T) {
	svc := newTestService(newFakeStore())
	org := uuid.New()

	p, err := svc.Create(context.Background(), org, models.OrgRoleMember, "  My Project ")
	require.NoError(t, err)
	assert.Equal(t, "My Project", p.Name)
	assert.Equal(t, org, p.OrganizationID)
	assert.True(t, strings.HasPrefix(p.Slug, "my-project-"), "slug %q", p.Slug)
}

func TestCreateProjectCap(t *testing.T) {
	svc := newTestService(newFakeStore())
	org := uuid.New()

	for i := 0; i < 10; i++ {
		_, err := svc.Create(context.Background(), org, models.OrgRoleMember, "Proj")
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), org, models.OrgRoleMember, "One Too Many")
	require.Error(t, err)
	assert.Equal(t, apperr.KindPreconditionFailed, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "10")

	// The cap is per organization, not global.
	_, err = svc.Create(context.Background(), uuid.New(), models.OrgRoleMember, "Elsewhere")
	assert.NoError(t, err)
}

func TestCreateProjectNameValidation(t *testing.T) {
	svc := newTestService(newFakeStore())
	org := uuid.New()

	_, err := svc.Create(context.Background(), org, models.OrgRoleMember, "   ")
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	_, err = svc.Create(context.Background(), org, models.OrgRoleMember, strings.Repeat("p", 21))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "20 characters or fewer")
}

func TestGetBySlugScopedToOrg(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	orgA, orgB := uuid.New(), uuid.New()

	p, err := svc.Create(context.Background(), orgA, models.OrgRoleMember, "Shared Name")
	require.NoError(t, err)

	got, err := svc.GetBySlug(context.Background(), orgA, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	// The same slug does not resolve in another tenant.
	_, err = svc.GetBySlug(context.Background(), orgB, p.Slug)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())
	org := uuid.New()

	err := svc.UpdateName(context.Background(), org, models.OrgRoleMember, "missing", "New Name")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = svc.Delete(context.Background(), org, models.OrgRoleAdmin, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPermissionTableGatesProjectMutations(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	org := uuid.New()

	// Members may create and rename but not delete.
	p, err := svc.Create(context.Background(), org, models.OrgRoleMember, "Member Made")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateName(context.Background(), org, models.OrgRoleMember, p.Slug, "Renamed"))

	err = svc.Delete(context.Background(), org, models.OrgRoleMember, p.Slug)
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	require.NoError(t, svc.Delete(context.Background(), org, models.OrgRoleOwner, p.Slug))
}

func TestUpdateAndDelete(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	org := uuid.New()

	p, err := svc.Create(context.Background(), org, models.OrgRoleMember, "Renamable")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateName(context.Background(), org, models.OrgRoleMember, p.Slug, "Renamed"))
	got, err := svc.GetBySlug(context.Background(), org, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	require.NoError(t, svc.Delete(context.Background(), org, models.OrgRoleAdmin, p.Slug))
	_, err = svc.GetBySlug(context.Background(), org, p.Slug)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
