package maintenance

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nimbus-saas/backend/config"
	"github.com/nimbus-saas/backend/internal/email"
)

// RefillCandidate is a primary, non-deleted organization considered for the
// free credit refill.
type RefillCandidate struct {
	OrgID                 uuid.UUID
	Credits               int
	CreatedAt             time.Time
	LastFreeRefillAt      *time.Time
	HasActiveSubscription bool
}

// CreditState is an active organization with its owner's address, used by the
// low-credit reminder sweep.
type CreditState struct {
	OrgID      uuid.UUID
	OrgName    string
	Credits    int
	Notified   bool
	OwnerEmail string
}

// UpcomingRenewal is an active subscription with its owner's address.
type UpcomingRenewal struct {
	SubscriptionID uuid.UUID
	OrgName        string
	PeriodEnd      time.Time
	ReminderSent   bool
	OwnerEmail     string
}

// Store is the persistence surface the maintenance jobs depend on.
type Store interface {
	ListRefillCandidates(ctx context.Context) ([]RefillCandidate, error)
	// RefillOrganization sets credits to the target, bumps the refill
	// timestamp and clears the low-credit flag.
	RefillOrganization(ctx context.Context, orgID uuid.UUID, credits int) error

	ListCreditStates(ctx context.Context) ([]CreditState, error)
	SetLowCreditNotified(ctx context.Context, orgID uuid.UUID, notified bool) error

	ListActiveSubscriptions(ctx context.Context) ([]UpcomingRenewal, error)
	MarkRenewalReminderSent(ctx context.Context, subscriptionID uuid.UUID) error

	// PurgeDeletedBefore hard-deletes organizations soft-deleted before the
	// cutoff and returns how many were removed.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Jobs runs the periodic maintenance sweeps. Every sweep re-evaluates current
// state, so re-running after an interruption is safe.
type Jobs struct {
	store  Store
	sender email.Sender
	limits config.LimitsConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewJobs creates the maintenance job set.
func NewJobs(store Store, sender email.Sender, limits config.LimitsConfig, logger *zap.Logger) *Jobs {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Jobs{store: store, sender: sender, limits: limits, logger: logger, now: time.Now}
}

// RefillCredits tops primary organizations back up to the refill amount when
// they have no active subscription, sit below the amount, and have not been
// refilled within the refill interval. Organizations at or above the amount
// are untouched, including their refill timestamp.
func (j *Jobs) RefillCredits(ctx context.Context) error {
	candidates, err := j.store.ListRefillCandidates(ctx)
	if err != nil {
		return err
	}
	now := j.now()
	refilled := 0
	for _, c := range candidates {
		if c.HasActiveSubscription || c.Credits >= j.limits.RefillCredits {
			continue
		}
		last := c.CreatedAt
		if c.LastFreeRefillAt != nil {
			last = *c.LastFreeRefillAt
		}
		if now.Sub(last) < j.limits.RefillInterval {
			continue
		}
		if err := j.store.RefillOrganization(ctx, c.OrgID, j.limits.RefillCredits); err != nil {
			j.logger.Error("refill organization", zap.String("org_id", c.OrgID.String()), zap.Error(err))
			continue
		}
		refilled++
	}
	j.logger.Info("credit refill sweep done", zap.Int("candidates", len(candidates)), zap.Int("refilled", refilled))
	return nil
}

// SendLowCreditReminders alerts owners once per threshold crossing. The sent
// flag is cleared when credits rise back above the threshold so the next
// crossing alerts again.
func (j *Jobs) SendLowCreditReminders(ctx context.Context) error {
	states, err := j.store.ListCreditStates(ctx)
	if err != nil {
		return err
	}
	for _, st := range states {
		switch {
		case st.Credits < j.limits.LowCreditThreshold && !st.Notified:
			data := map[string]string{
				"org_name": st.OrgName,
				"credits":  strconv.Itoa(st.Credits),
			}
			if err := j.sender.Send(ctx, st.OwnerEmail, email.TemplateLowCredit, data); err != nil {
				j.logger.Warn("low-credit reminder", zap.String("org_id", st.OrgID.String()), zap.Error(err))
				continue
			}
			if err := j.store.SetLowCreditNotified(ctx, st.OrgID, true); err != nil {
				j.logger.Error("mark low-credit notified", zap.String("org_id", st.OrgID.String()), zap.Error(err))
			}
		case st.Credits >= j.limits.LowCreditThreshold && st.Notified:
			if err := j.store.SetLowCreditNotified(ctx, st.OrgID, false); err != nil {
				j.logger.Error("clear low-credit notified", zap.String("org_id", st.OrgID.String()), zap.Error(err))
			}
		}
	}
	return nil
}

// SendRenewalReminders notifies owners once per subscription when the period
// end falls inside the look-ahead window.
func (j *Jobs) SendRenewalReminders(ctx context.Context) error {
	subs, err := j.store.ListActiveSubscriptions(ctx)
	if err != nil {
		return err
	}
	now := j.now()
	for _, sub := range subs {
		if sub.ReminderSent {
			continue
		}
		if sub.PeriodEnd.Before(now) || sub.PeriodEnd.After(now.Add(j.limits.RenewalLookahead)) {
			continue
		}
		data := map[string]string{
			"org_name":   sub.OrgName,
			"period_end": sub.PeriodEnd.Format("Jan 2, 2006"),
		}
		if err := j.sender.Send(ctx, sub.OwnerEmail, email.TemplateRenewalReminder, data); err != nil {
			j.logger.Warn("renewal reminder", zap.String("subscription_id", sub.SubscriptionID.String()), zap.Error(err))
			continue
		}
		if err := j.store.MarkRenewalReminderSent(ctx, sub.SubscriptionID); err != nil {
			j.logger.Error("mark renewal reminder sent",
				zap.String("subscription_id", sub.SubscriptionID.String()), zap.Error(err))
		}
	}
	return nil
}

// PurgeDeletedOrgs hard-deletes organizations whose soft-delete timestamp is
// older than the retention window. Dependent rows go with them via cascades.
func (j *Jobs) PurgeDeletedOrgs(ctx context.Context) error {
	cutoff := j.now().Add(-j.limits.PurgeAfter)
	n, err := j.store.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	j.logger.Info("purge sweep done", zap.Int64("purged", n))
	return nil
}
