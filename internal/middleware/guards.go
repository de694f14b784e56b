package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/pkg/response"
)

// debugLogger, when set, logs guard outcomes and elapsed time. Logging never
// affects pass/fail.
var debugLogger *zap.Logger

// EnableDebugLogging turns on guard-chain timing logs (development only).
func EnableDebugLogging(logger *zap.Logger) {
	debugLogger = logger
}

func logGuard(c *gin.Context, guard string, start time.Time, passed bool) {
	if debugLogger == nil {
		return
	}
	debugLogger.Debug("guard",
		zap.String("guard", guard),
		zap.String("path", c.FullPath()),
		zap.Bool("passed", passed),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// The guards below form an ordered chain: each re-checks the weaker
// requirement before its own, so a single failure always reports the
// earliest-violated condition (an anonymous caller on an owner-only route
// gets 401, not 403). None of them touch the data store; they trust the
// membership invariant established by TenantContext.

// RequireAuth rejects anonymous callers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		if CurrentUserID(c) == uuid.Nil {
			logGuard(c, "auth", start, false)
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		logGuard(c, "auth", start, true)
		c.Next()
	}
}

// RequireTenant rejects callers with no verified active organization.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		if CurrentUserID(c) == uuid.Nil {
			logGuard(c, "tenant", start, false)
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		if CurrentOrgID(c) == uuid.Nil || CurrentOrgRole(c) == "" {
			logGuard(c, "tenant", start, false)
			response.Forbidden(c, "no active organization")
			c.Abort()
			return
		}
		logGuard(c, "tenant", start, true)
		c.Next()
	}
}

// RequireElevated rejects callers below admin in the active organization.
func RequireElevated() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		if CurrentUserID(c) == uuid.Nil {
			logGuard(c, "elevated", start, false)
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		if CurrentOrgID(c) == uuid.Nil || CurrentOrgRole(c) == "" {
			logGuard(c, "elevated", start, false)
			response.Forbidden(c, "no active organization")
			c.Abort()
			return
		}
		role := CurrentOrgRole(c)
		if role != models.OrgRoleAdmin && role != models.OrgRoleOwner {
			logGuard(c, "elevated", start, false)
			response.Forbidden(c, "admin or owner role required")
			c.Abort()
			return
		}
		logGuard(c, "elevated", start, true)
		c.Next()
	}
}

// RequireOwner rejects callers who are not the owner of the active organization.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		if CurrentUserID(c) == uuid.Nil {
			logGuard(c, "owner", start, false)
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		if CurrentOrgID(c) == uuid.Nil || CurrentOrgRole(c) == "" {
			logGuard(c, "owner", start, false)
			response.Forbidden(c, "no active organization")
			c.Abort()
			return
		}
		if CurrentOrgRole(c) != models.OrgRoleOwner {
			logGuard(c, "owner", start, false)
			response.Forbidden(c, "owner role required")
			c.Abort()
			return
		}
		logGuard(c, "owner", start, true)
		c.Next()
	}
}

// RequirePlatformAdmin allows only identities whose email appears in the
// platform allow-list (exact match). An empty allow-list denies everyone.
func RequirePlatformAdmin(allowedEmails []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedEmails))
	for _, e := range allowedEmails {
		allowed[e] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		if CurrentUserID(c) == uuid.Nil {
			logGuard(c, "platform_admin", start, false)
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		email := CurrentUserEmail(c)
		if email == "" {
			logGuard(c, "platform_admin", start, false)
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		if _, ok := allowed[email]; !ok {
			logGuard(c, "platform_admin", start, false)
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		logGuard(c, "platform_admin", start, true)
		c.Next()
	}
}
