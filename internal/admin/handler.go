package admin

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nimbus-saas/backend/pkg/response"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Page is a validated pagination request.
type Page struct {
	Number int
	Limit  int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// ParsePage normalizes raw page and limit values: page floors at 1, limit
// falls back to the default when unparseable and is capped at 100.
func ParsePage(pageStr, limitStr string) Page {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Page{Number: page, Limit: limit}
}

// Handler serves the platform-admin endpoints. Routes are mounted behind the
// platform-admin guard; nothing here re-checks identity.
type Handler struct {
	repo *Repository
}

// NewHandler creates an admin handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// pagedBody wraps a listing with its pagination envelope.
type pagedBody struct {
	Items any `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// Dashboard handles GET /admin/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.repo.GetDashboardStats(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, stats)
}

// ListUsers handles GET /admin/users.
func (h *Handler) ListUsers(c *gin.Context) {
	page := ParsePage(c.Query("page"), c.Query("limit"))
	search := strings.TrimSpace(c.Query("q"))
	users, total, err := h.repo.ListUsers(c.Request.Context(), page, search)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, pagedBody{Items: users, Page: page.Number, Limit: page.Limit, Total: total})
}

// ListOrganizations handles GET /admin/organizations.
func (h *Handler) ListOrganizations(c *gin.Context) {
	page := ParsePage(c.Query("page"), c.Query("limit"))
	search := strings.TrimSpace(c.Query("q"))
	orgs, total, err := h.repo.ListOrganizations(c.Request.Context(), page, search)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, pagedBody{Items: orgs, Page: page.Number, Limit: page.Limit, Total: total})
}

// ListSubscriptions handles GET /admin/subscriptions.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	page := ParsePage(c.Query("page"), c.Query("limit"))
	subs, total, err := h.repo.ListSubscriptions(c.Request.Context(), page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, pagedBody{Items: subs, Page: page.Number, Limit: page.Limit, Total: total})
}

// GetOrganization handles GET /admin/organizations/:id.
func (h *Handler) GetOrganization(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	detail, err := h.repo.GetOrgDetail(c.Request.Context(), orgID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if detail == nil {
		response.NotFound(c, "Organization not found")
		return
	}
	response.OK(c, detail)
}
