package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteStatus is the lifecycle state of an organization invite.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"
	InviteStatusExpired  InviteStatus = "expired"
	InviteStatusRevoked  InviteStatus = "revoked"
)

// OrganizationInvite is a pending invitation to join an organization.
// The token is single-use and unguessable; Role is never owner.
type OrganizationInvite struct {
	ID             uuid.UUID    `json:"id"`
	OrganizationID uuid.UUID    `json:"organization_id"`
	InviterID      uuid.UUID    `json:"inviter_id"`
	Email          string       `json:"email"`
	Role           OrgRole      `json:"role"`
	Token          string       `json:"-"`
	Status         InviteStatus `json:"status"`
	ExpiresAt      time.Time    `json:"expires_at"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Expired reports whether the invite's expiry has passed at t.
func (i *OrganizationInvite) Expired(t time.Time) bool {
	return t.After(i.ExpiresAt)
}
