package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a tenant-scoped resource. Every read and write is scoped to
// organizations the acting user belongs to.
type Project struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
