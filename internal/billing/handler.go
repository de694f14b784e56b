package billing

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbus-saas/backend/internal/middleware"
	"github.com/nimbus-saas/backend/pkg/response"
)

// Handler handles billing HTTP endpoints. All routes run behind the elevated
// guard on the active organization.
type Handler struct {
	svc *Service
}

// NewHandler creates a billing handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CheckoutRequest is the body for checkout and renewal.
type CheckoutRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

// CreateSubscription handles POST /billing/subscribe.
func (h *Handler) CreateSubscription(c *gin.Context) {
	var body CheckoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "plan_id required")
		return
	}
	sess, err := h.svc.CreateSubscription(c.Request.Context(), middleware.CurrentOrgID(c), body.PlanID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, sess)
}

// RenewSubscription handles POST /billing/renew.
func (h *Handler) RenewSubscription(c *gin.Context) {
	var body CheckoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "plan_id required")
		return
	}
	sess, err := h.svc.RenewSubscription(c.Request.Context(), middleware.CurrentOrgID(c), body.PlanID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, sess)
}

// ConfirmSubscription handles POST /billing/confirm.
func (h *Handler) ConfirmSubscription(c *gin.Context) {
	var body ConfirmSubscription
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "subscription details required")
		return
	}
	sub, err := h.svc.RecordSubscription(c.Request.Context(), middleware.CurrentOrgID(c), body)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, sub)
}

// CreateCustomerPortal handles POST /billing/portal.
func (h *Handler) CreateCustomerPortal(c *gin.Context) {
	url, err := h.svc.CreateCustomerPortal(c.Request.Context(), middleware.CurrentOrgID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"url": url})
}

// GetSubscription handles GET /billing/subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.svc.GetSubscription(c.Request.Context(), middleware.CurrentOrgID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, sub)
}
