package projects

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbus-saas/backend/internal/middleware"
	"github.com/nimbus-saas/backend/pkg/response"
)

// Handler handles project HTTP endpoints. All routes run behind the tenant
// guard, so the active organization is always set.
type Handler struct {
	svc *Service
}

// NewHandler creates a projects handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateProjectRequest is the body for POST /projects.
type CreateProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /projects.
func (h *Handler) Create(c *gin.Context) {
	var body CreateProjectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.CurrentOrgID(c),
		middleware.CurrentOrgRole(c), body.Name)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, p)
}

// List handles GET /projects.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.CurrentOrgID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}

// GetBySlug handles GET /projects/:slug.
func (h *Handler) GetBySlug(c *gin.Context) {
	p, err := h.svc.GetBySlug(c.Request.Context(), middleware.CurrentOrgID(c), c.Param("slug"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, p)
}

// UpdateNameRequest is the body for PATCH /projects/:slug.
type UpdateNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateName handles PATCH /projects/:slug.
func (h *Handler) UpdateName(c *gin.Context) {
	var body UpdateNameRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	if err := h.svc.UpdateName(c.Request.Context(), middleware.CurrentOrgID(c),
		middleware.CurrentOrgRole(c), c.Param("slug"), body.Name); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// Delete handles DELETE /projects/:slug.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentOrgID(c),
		middleware.CurrentOrgRole(c), c.Param("slug")); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}
