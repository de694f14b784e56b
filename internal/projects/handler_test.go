package projects

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nimbus-saas/backend/internal/middleware"
	"github.com/nimbus-saas/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newProjectRouter mounts the project routes under the same guard layout the
// server uses: creation and reads behind the tenant guard, rename and delete
// behind the elevated guard.
func newProjectRouter(role models.OrgRole) *gin.Engine {
	h := NewHandler(newTestService(newFakeStore()))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uuid.New())
		c.Set(middleware.ContextOrgID, uuid.New())
		c.Set(middleware.ContextOrgRole, role)
		c.Next()
	})

	tenant := r.Group("/org", middleware.RequireTenant())
	tenant.POST("/projects", h.Create)
	tenant.GET("/projects", h.List)

	elevated := r.Group("/org", middleware.RequireElevated())
	elevated.DELETE("/projects/:slug", h.Delete)
	return r
}

func TestMemberCanCreateProject(t *testing.T) {
	r := newProjectRouter(models.OrgRoleMember)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/org/projects", strings.NewReader(`{"name":"Alpha"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestMemberCannotDeleteProject(t *testing.T) {
	r := newProjectRouter(models.OrgRoleMember)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/org/projects/alpha", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
