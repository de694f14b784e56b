package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/internal/rbac"
)

// activeOrgHeader and activeOrgCookie carry the caller's active-tenant hint.
const (
	activeOrgHeader = "X-Org-ID"
	activeOrgCookie = "active_org"
)

// TenantContext resolves the active organization from the request's tenant
// hint. The org id and role are set only when the hinted org exists and the
// caller holds a verified membership in it; a hint the caller does not belong
// to leaves the tenant fields unset rather than failing, so it can never leak
// another tenant's id or role into the context. Downstream guards rely on
// this: a non-nil org id in context always implies verified membership.
func TenantContext(store rbac.MembershipStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := CurrentUserID(c)
		if userID == uuid.Nil {
			c.Next()
			return
		}
		hint := c.GetHeader(activeOrgHeader)
		if hint == "" {
			if v, err := c.Cookie(activeOrgCookie); err == nil {
				hint = v
			}
		}
		if hint == "" {
			c.Next()
			return
		}
		orgID, err := uuid.Parse(hint)
		if err != nil {
			c.Next()
			return
		}
		role, err := store.GetMemberRole(c.Request.Context(), orgID, userID)
		if err != nil || role == "" {
			c.Next()
			return
		}
		c.Set(ContextOrgID, orgID)
		c.Set(ContextOrgRole, role)
		c.Next()
	}
}

// CurrentOrgID returns the verified active organization id, or uuid.Nil.
func CurrentOrgID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(ContextOrgID)
	if !ok {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

// CurrentOrgRole returns the caller's role in the active organization, or "".
func CurrentOrgRole(c *gin.Context) models.OrgRole {
	v, ok := c.Get(ContextOrgRole)
	if !ok {
		return ""
	}
	role, _ := v.(models.OrgRole)
	return role
}
