package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nimbus-saas/backend/internal/auth"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
	// ContextOrgID is the key for the active organization ID.
	ContextOrgID = "org_id"
	// ContextOrgRole is the key for the caller's role in the active organization.
	ContextOrgRole = "org_role"
)

// Identity returns a middleware that resolves the authenticated identity from
// the Authorization header when present. A missing or invalid token is not an
// error here; downstream guards decide whether anonymity is acceptable.
func Identity(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			c.Next()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}

// CurrentUserID returns the resolved user id, or uuid.Nil when anonymous.
func CurrentUserID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

// CurrentUserEmail returns the resolved email, or "" when anonymous.
func CurrentUserEmail(c *gin.Context) string {
	v, ok := c.Get(ContextUserEmail)
	if !ok {
		return ""
	}
	email, _ := v.(string)
	return email
}
