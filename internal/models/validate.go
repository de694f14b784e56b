package models

import (
	"strings"

	"github.com/nimbus-saas/backend/pkg/apperr"
)

// NameMaxLen bounds organization and project names.
const NameMaxLen = 20

// ValidateName enforces the shared name rule for organizations and projects.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.BadRequest("Name is required")
	}
	if len([]rune(name)) > NameMaxLen {
		return apperr.BadRequest("Name must be 20 characters or fewer")
	}
	return nil
}
