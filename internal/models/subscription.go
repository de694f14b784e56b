package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus for external subscriptions.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusPastDue  = "past_due"
)

// Subscription links an organization to an external payment-provider plan.
type Subscription struct {
	ID                     uuid.UUID  `json:"id"`
	OrganizationID         uuid.UUID  `json:"organization_id"`
	ProviderSubscriptionID string     `json:"provider_subscription_id"`
	PlanID                 string     `json:"plan_id"`
	Status                 string     `json:"status"`
	CurrentPeriodStart     time.Time  `json:"current_period_start"`
	CurrentPeriodEnd       time.Time  `json:"current_period_end"`
	RenewalReminderSent    bool       `json:"-"`
	CanceledAt             *time.Time `json:"canceled_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Active reports whether the subscription is currently active.
func (s *Subscription) Active() bool {
	return s.Status == SubscriptionStatusActive
}
