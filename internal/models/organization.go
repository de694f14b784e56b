package models

import (
	"time"

	"github.com/google/uuid"
)

// OrgRole is the role of a user within an organization.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// ValidOrgRole reports whether s is a known organization role.
func ValidOrgRole(s string) bool {
	switch OrgRole(s) {
	case OrgRoleOwner, OrgRoleAdmin, OrgRoleMember:
		return true
	}
	return false
}

// Organization represents a tenant: the billing and data-isolation boundary.
// At most one organization per user has IsPrimary set; the primary org is the
// one seeded with free credits at creation and topped up by the refill job.
type Organization struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Slug              string     `json:"slug"`
	Credits           int        `json:"credits"`
	IsPrimary         bool       `json:"is_primary"`
	StripeCustomerID  string     `json:"-"`
	LastFreeRefillAt  *time.Time `json:"last_free_refill_at,omitempty"`
	LowCreditNotified bool       `json:"-"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// OrganizationMember links a user to an organization with a role.
// (organization_id, user_id) is unique.
type OrganizationMember struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	Role           OrgRole   `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
