package projects

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/nimbus-saas/backend/config"
	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/internal/rbac"
	"github.com/nimbus-saas/backend/pkg/apperr"
	"github.com/nimbus-saas/backend/pkg/utils"
)

// Store is the persistence surface the project service depends on.
// Implemented by *Repository; faked in tests.
type Store interface {
	Create(ctx context.Context, p *models.Project) error
	List(ctx context.Context, orgID uuid.UUID) ([]models.Project, error)
	GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Project, error)
	Count(ctx context.Context, orgID uuid.UUID) (int, error)
	UpdateName(ctx context.Context, orgID uuid.UUID, slug, name string) (int64, error)
	Delete(ctx context.Context, orgID uuid.UUID, slug string) (int64, error)
}

// Service applies the per-organization project cap and name rules.
type Service struct {
	store  Store
	limits config.LimitsConfig
}

// NewService creates a project service.
func NewService(store Store, limits config.LimitsConfig) *Service {
	return &Service{store: store, limits: limits}
}

// Create adds a project to the organization, re-reading the count at
// mutation time to enforce the cap. Any member may create.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, actorRole models.OrgRole, name string) (*models.Project, error) {
	if err := rbac.Authorize(actorRole, rbac.ActionProjectCreate); err != nil {
		return nil, err
	}
	if err := models.ValidateName(name); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	count, err := s.store.Count(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if count >= s.limits.MaxProjectsPerOrg {
		return nil, apperr.Newf(apperr.KindPreconditionFailed,
			"Limit reached: at most %d projects per organization", s.limits.MaxProjectsPerOrg)
	}

	p := &models.Project{
		OrganizationID: orgID,
		Name:           name,
		Slug:           slugify(name),
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the organization's projects.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]models.Project, error) {
	return s.store.List(ctx, orgID)
}

// GetBySlug returns a project in the organization by slug.
func (s *Service) GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Project, error) {
	p, err := s.store.GetBySlug(ctx, orgID, slug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("Project not found")
	}
	return p, nil
}

// UpdateName renames a project.
func (s *Service) UpdateName(ctx context.Context, orgID uuid.UUID, actorRole models.OrgRole, slug, name string) error {
	if err := rbac.Authorize(actorRole, rbac.ActionProjectUpdate); err != nil {
		return err
	}
	if err := models.ValidateName(name); err != nil {
		return err
	}
	n, err := s.store.UpdateName(ctx, orgID, slug, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Project not found")
	}
	return nil
}

// Delete removes a project.
func (s *Service) Delete(ctx context.Context, orgID uuid.UUID, actorRole models.OrgRole, slug string) error {
	if err := rbac.Authorize(actorRole, rbac.ActionProjectDelete); err != nil {
		return err
	}
	n, err := s.store.Delete(ctx, orgID, slug)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Project not found")
	}
	return nil
}

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
		slug = "project"
	}
	return slug + "-" + utils.RandomSuffix()
}
