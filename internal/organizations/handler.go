package organizations

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nimbus-saas/backend/internal/middleware"
	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/pkg/response"
)

// Handler handles organization HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an organizations handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateOrganizationRequest is the body for POST /organizations.
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /organizations.
func (h *Handler) Create(c *gin.Context) {
	var body CreateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	org, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), body.Name)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, org)
}

// List handles GET /organizations.
func (h *Handler) List(c *gin.Context) {
	orgs, err := h.svc.List(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, orgs)
}

// GetByID handles GET /organizations/:id.
func (h *Handler) GetByID(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	org, err := h.svc.Get(c.Request.Context(), orgID, middleware.CurrentUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, org)
}

// UpdateNameRequest is the body for PATCH /org/name.
type UpdateNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateName handles PATCH /org/name on the active organization.
func (h *Handler) UpdateName(c *gin.Context) {
	var body UpdateNameRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	if err := h.svc.UpdateName(c.Request.Context(), middleware.CurrentOrgID(c),
		middleware.CurrentOrgRole(c), body.Name); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteRequest is the body for DELETE /org.
type DeleteRequest struct {
	TransferToOrgID *uuid.UUID `json:"transfer_to_org_id,omitempty"`
}

// Delete handles DELETE /org on the active organization (owner only).
func (h *Handler) Delete(c *gin.Context) {
	var body DeleteRequest
	_ = c.ShouldBindJSON(&body) // body is optional
	err := h.svc.Delete(c.Request.Context(), middleware.CurrentOrgID(c),
		middleware.CurrentUserID(c), middleware.CurrentOrgRole(c), body.TransferToOrgID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// ListMembers handles GET /org/members.
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.svc.ListMembers(c.Request.Context(), middleware.CurrentOrgID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, members)
}

// UpdateMemberRoleRequest is the body for PATCH /org/members/:userId/role.
type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateMemberRole handles PATCH /org/members/:userId/role.
func (h *Handler) UpdateMemberRole(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var body UpdateMemberRoleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "role required")
		return
	}
	err = h.svc.UpdateMemberRole(c.Request.Context(), middleware.CurrentOrgID(c),
		middleware.CurrentOrgRole(c), targetID, models.OrgRole(body.Role))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveMember handles DELETE /org/members/:userId.
func (h *Handler) RemoveMember(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), middleware.CurrentOrgID(c),
		middleware.CurrentOrgRole(c), targetID); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// InviteRequest is the body for POST /org/invites.
type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// InviteMember handles POST /org/invites.
func (h *Handler) InviteMember(c *gin.Context) {
	var body InviteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "email and role required")
		return
	}
	inv, err := h.svc.InviteMember(c.Request.Context(), middleware.CurrentOrgID(c),
		middleware.CurrentUserID(c), middleware.CurrentOrgRole(c), body.Email, models.OrgRole(body.Role))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, inv)
}

// ListInvites handles GET /org/invites.
func (h *Handler) ListInvites(c *gin.Context) {
	invites, err := h.svc.ListInvites(c.Request.Context(), middleware.CurrentOrgID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, invites)
}

// RevokeInvite handles POST /org/invites/:id/revoke.
func (h *Handler) RevokeInvite(c *gin.Context) {
	inviteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invite id")
		return
	}
	if err := h.svc.RevokeInvite(c.Request.Context(), middleware.CurrentOrgID(c),
		middleware.CurrentOrgRole(c), inviteID); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// ResendInvite handles POST /org/invites/:id/resend.
func (h *Handler) ResendInvite(c *gin.Context) {
	inviteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invite id")
		return
	}
	inv, err := h.svc.ResendInvite(c.Request.Context(), middleware.CurrentOrgID(c),
		middleware.CurrentOrgRole(c), inviteID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, inv)
}

// DeleteInvite handles DELETE /org/invites/:id.
func (h *Handler) DeleteInvite(c *gin.Context) {
	inviteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invite id")
		return
	}
	if err := h.svc.DeleteInvite(c.Request.Context(), middleware.CurrentOrgID(c),
		middleware.CurrentOrgRole(c), inviteID); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

// InviteTokenRequest is the body for invite accept/decline.
type InviteTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// AcceptInvite handles POST /invites/accept.
func (h *Handler) AcceptInvite(c *gin.Context) {
	var body InviteTokenRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "token required")
		return
	}
	inv, err := h.svc.AcceptInvite(c.Request.Context(), body.Token,
		middleware.CurrentUserID(c), middleware.CurrentUserEmail(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, inv)
}

// DeclineInvite handles POST /invites/decline.
func (h *Handler) DeclineInvite(c *gin.Context) {
	var body InviteTokenRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "token required")
		return
	}
	if err := h.svc.DeclineInvite(c.Request.Context(), body.Token, middleware.CurrentUserEmail(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}
