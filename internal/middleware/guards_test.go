package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nimbus-saas/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// seed injects identity/tenant context keys the way Identity and
// TenantContext would, so guards can be exercised in isolation.
func seed(userID uuid.UUID, email string, orgID uuid.UUID, role models.OrgRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(ContextUserID, userID)
		}
		if email != "" {
			c.Set(ContextUserEmail, email)
		}
		if orgID != uuid.Nil {
			c.Set(ContextOrgID, orgID)
		}
		if role != "" {
			c.Set(ContextOrgRole, role)
		}
		c.Next()
	}
}

func runGuard(t *testing.T, guard gin.HandlerFunc, pre gin.HandlerFunc) int {
	t.Helper()
	r := gin.New()
	r.GET("/op", pre, guard, func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/op", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAuth(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized,
		runGuard(t, RequireAuth(), seed(uuid.Nil, "", uuid.Nil, "")))
	assert.Equal(t, http.StatusOK,
		runGuard(t, RequireAuth(), seed(uuid.New(), "a@b.com", uuid.Nil, "")))
}

func TestRequireTenant(t *testing.T) {
	user, org := uuid.New(), uuid.New()

	// Missing tenant fields fail Forbidden even with identity present.
	assert.Equal(t, http.StatusForbidden,
		runGuard(t, RequireTenant(), seed(user, "a@b.com", uuid.Nil, "")))
	assert.Equal(t, http.StatusForbidden,
		runGuard(t, RequireTenant(), seed(user, "a@b.com", org, "")))

	// Anonymous caller reports the more fundamental failure.
	assert.Equal(t, http.StatusUnauthorized,
		runGuard(t, RequireTenant(), seed(uuid.Nil, "", org, models.OrgRoleMember)))

	assert.Equal(t, http.StatusOK,
		runGuard(t, RequireTenant(), seed(user, "a@b.com", org, models.OrgRoleMember)))
}

func TestRequireElevated(t *testing.T) {
	user, org := uuid.New(), uuid.New()

	assert.Equal(t, http.StatusOK,
		runGuard(t, RequireElevated(), seed(user, "", org, models.OrgRoleAdmin)))
	assert.Equal(t, http.StatusOK,
		runGuard(t, RequireElevated(), seed(user, "", org, models.OrgRoleOwner)))
	assert.Equal(t, http.StatusForbidden,
		runGuard(t, RequireElevated(), seed(user, "", org, models.OrgRoleMember)))

	// Unauthenticated beats forbidden in the failure ordering.
	assert.Equal(t, http.StatusUnauthorized,
		runGuard(t, RequireElevated(), seed(uuid.Nil, "", org, models.OrgRoleOwner)))
}

func TestRequireOwner(t *testing.T) {
	user, org := uuid.New(), uuid.New()

	assert.Equal(t, http.StatusOK,
		runGuard(t, RequireOwner(), seed(user, "", org, models.OrgRoleOwner)))
	assert.Equal(t, http.StatusForbidden,
		runGuard(t, RequireOwner(), seed(user, "", org, models.OrgRoleAdmin)))
	assert.Equal(t, http.StatusUnauthorized,
		runGuard(t, RequireOwner(), seed(uuid.Nil, "", uuid.Nil, "")))
}

func TestRequirePlatformAdmin(t *testing.T) {
	user := uuid.New()
	allow := []string{"root@nimbus.dev"}

	assert.Equal(t, http.StatusUnauthorized,
		runGuard(t, RequirePlatformAdmin(allow), seed(uuid.Nil, "", uuid.Nil, "")))
	assert.Equal(t, http.StatusForbidden,
		runGuard(t, RequirePlatformAdmin(allow), seed(user, "", uuid.Nil, "")))
	assert.Equal(t, http.StatusForbidden,
		runGuard(t, RequirePlatformAdmin(allow), seed(user, "other@nimbus.dev", uuid.Nil, "")))
	assert.Equal(t, http.StatusOK,
		runGuard(t, RequirePlatformAdmin(allow), seed(user, "root@nimbus.dev", uuid.Nil, "")))

	// Empty allow-list denies everyone.
	assert.Equal(t, http.StatusForbidden,
		runGuard(t, RequirePlatformAdmin(nil), seed(user, "root@nimbus.dev", uuid.Nil, "")))
}

type stubMembers struct {
	roles map[string]models.OrgRole // "org|user" -> role
}

func (s *stubMembers) GetMemberRole(_ context.Context, orgID, userID uuid.UUID) (models.OrgRole, error) {
	return s.roles[orgID.String()+"|"+userID.String()], nil
}

func TestTenantContextVerifiesMembership(t *testing.T) {
	user, member0rg, otherOrg := uuid.New(), uuid.New(), uuid.New()
	store := &stubMembers{roles: map[string]models.OrgRole{
		member0rg.String() + "|" + user.String(): models.OrgRoleAdmin,
	}}

	var gotOrg uuid.UUID
	var gotRole models.OrgRole
	r := gin.New()
	r.GET("/op", seed(user, "a@b.com", uuid.Nil, ""), TenantContext(store), func(c *gin.Context) {
		gotOrg = CurrentOrgID(c)
		gotRole = CurrentOrgRole(c)
		c.Status(http.StatusOK)
	})

	// Verified membership populates the tenant fields.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/op", nil)
	req.Header.Set("X-Org-ID", member0rg.String())
	r.ServeHTTP(w, req)
	assert.Equal(t, member0rg, gotOrg)
	assert.Equal(t, models.OrgRoleAdmin, gotRole)

	// A hinted org the caller does not belong to leaks nothing.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/op", nil)
	req.Header.Set("X-Org-ID", otherOrg.String())
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uuid.Nil, gotOrg)
	assert.Equal(t, models.OrgRole(""), gotRole)

	// No hint at all: identity-only context.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/op", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, uuid.Nil, gotOrg)

	// Cookie hint works as fallback.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/op", nil)
	req.AddCookie(&http.Cookie{Name: "active_org", Value: member0rg.String()})
	r.ServeHTTP(w, req)
	assert.Equal(t, member0rg, gotOrg)
}
