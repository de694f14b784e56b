package emaillogs

import (
	"github.com/gin-gonic/gin"

	"github.com/nimbus-saas/backend/internal/admin"
	"github.com/nimbus-saas/backend/pkg/response"
)

// Handler serves the email delivery log. Mounted on the platform-admin
// surface.
type Handler struct {
	repo *Repository
}

// NewHandler creates an email logs handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /admin/emails.
func (h *Handler) List(c *gin.Context) {
	page := admin.ParsePage(c.Query("page"), c.Query("limit"))
	logs, total, err := h.repo.ListRecent(c.Request.Context(), page.Limit, page.Offset())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{
		"items": logs,
		"page":  page.Number,
		"limit": page.Limit,
		"total": total,
	})
}
