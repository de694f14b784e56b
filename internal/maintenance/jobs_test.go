package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-saas/backend/config"
)

type fakeStore struct {
	refillCandidates []RefillCandidate
	refilled         map[uuid.UUID]int
	creditStates     []CreditState
	notified         map[uuid.UUID]bool
	subs             []UpcomingRenewal
	remindersSent    []uuid.UUID
	purgeCutoff      time.Time
	purged           int64
}

func newFake() *fakeStore {
	return &fakeStore{
		refilled: make(map[uuid.UUID]int),
		notified: make(map[uuid.UUID]bool),
	}
}

func (f *fakeStore) ListRefillCandidates(context.Context) ([]RefillCandidate, error) {
	return f.refillCandidates, nil
}

func (f *fakeStore) RefillOrganization(_ context.Context, orgID uuid.UUID, credits int) error {
	f.refilled[orgID] = credits
	return nil
}

func (f *fakeStore) ListCreditStates(context.Context) ([]CreditState, error) {
	return f.creditStates, nil
}

func (f *fakeStore) SetLowCreditNotified(_ context.Context, orgID uuid.UUID, notified bool) error {
	f.notified[orgID] = notified
	return nil
}

func (f *fakeStore) ListActiveSubscriptions(context.Context) ([]UpcomingRenewal, error) {
	return f.subs, nil
}

func (f *fakeStore) MarkRenewalReminderSent(_ context.Context, id uuid.UUID) error {
	f.remindersSent = append(f.remindersSent, id)
	return nil
}

func (f *fakeStore) PurgeDeletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.purgeCutoff = cutoff
	return f.purged, nil
}

type fakeSender struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	to       string
	template string
	data     map[string]string
}

func (f *fakeSender) Send(_ context.Context, to, template string, data map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, template: template, data: data})
	return nil
}

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{
		RefillCredits:      5,
		RefillInterval:     30 * 24 * time.Hour,
		LowCreditThreshold: 2,
		RenewalLookahead:   72 * time.Hour,
		PurgeAfter:         30 * 24 * time.Hour,
	}
}

func newJobs(store *fakeStore, sender *fakeSender, now time.Time) *Jobs {
	j := NewJobs(store, sender, testLimits(), nil)
	j.now = func() time.Time { return now }
	return j
}

func TestRefillCredits(t *testing.T) {
	now := time.Now()
	old := now.Add(-31 * 24 * time.Hour)
	recent := now.Add(-10 * 24 * time.Hour)

	eligible := uuid.New()
	withSub := uuid.New()
	tooRecent := uuid.New()
	flush := uuid.New()
	neverRefilled := uuid.New()

	store := newFake()
	store.refillCandidates = []RefillCandidate{
		{OrgID: eligible, Credits: 1, CreatedAt: old, LastFreeRefillAt: &old},
		{OrgID: withSub, Credits: 1, CreatedAt: old, LastFreeRefillAt: &old, HasActiveSubscription: true},
		{OrgID: tooRecent, Credits: 1, CreatedAt: old, LastFreeRefillAt: &recent},
		{OrgID: flush, Credits: 5, CreatedAt: old, LastFreeRefillAt: &old},
		// Never refilled: eligibility falls back to the creation timestamp.
		{OrgID: neverRefilled, Credits: 0, CreatedAt: old},
	}

	require.NoError(t, newJobs(store, &fakeSender{}, now).RefillCredits(context.Background()))

	assert.Equal(t, map[uuid.UUID]int{eligible: 5, neverRefilled: 5}, store.refilled)
}

func TestRefillIsIdempotent(t *testing.T) {
	now := time.Now()
	old := now.Add(-31 * 24 * time.Hour)
	org := uuid.New()

	store := newFake()
	store.refillCandidates = []RefillCandidate{
		{OrgID: org, Credits: 1, CreatedAt: old, LastFreeRefillAt: &old},
	}
	jobs := newJobs(store, &fakeSender{}, now)
	require.NoError(t, jobs.RefillCredits(context.Background()))

	// After a refill the row would read credits=5 and a fresh timestamp; a
	// second sweep must not touch it.
	store.refillCandidates[0].Credits = 5
	store.refillCandidates[0].LastFreeRefillAt = &now
	store.refilled = map[uuid.UUID]int{}
	require.NoError(t, jobs.RefillCredits(context.Background()))
	assert.Empty(t, store.refilled)
}

func TestLowCreditRemindersSentOncePerCrossing(t *testing.T) {
	now := time.Now()
	low := uuid.New()
	alreadyNotified := uuid.New()
	healthy := uuid.New()
	recovered := uuid.New()

	store := newFake()
	store.creditStates = []CreditState{
		{OrgID: low, OrgName: "Low", Credits: 1, OwnerEmail: "low@example.com"},
		{OrgID: alreadyNotified, OrgName: "Known", Credits: 0, Notified: true, OwnerEmail: "known@example.com"},
		{OrgID: healthy, OrgName: "Fine", Credits: 4, OwnerEmail: "fine@example.com"},
		{OrgID: recovered, OrgName: "Back", Credits: 3, Notified: true, OwnerEmail: "back@example.com"},
	}
	sender := &fakeSender{}

	require.NoError(t, newJobs(store, sender, now).SendLowCreditReminders(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "low@example.com", sender.sent[0].to)
	assert.Equal(t, "1", sender.sent[0].data["credits"])
	assert.True(t, store.notified[low], "the crossed org is marked notified")
	assert.False(t, store.notified[recovered], "a recovered org gets its flag cleared")
	_, touched := store.notified[healthy]
	assert.False(t, touched)
}

func TestLowCreditReminderSendFailureLeavesFlagClear(t *testing.T) {
	store := newFake()
	org := uuid.New()
	store.creditStates = []CreditState{
		{OrgID: org, OrgName: "Low", Credits: 0, OwnerEmail: "low@example.com"},
	}
	sender := &fakeSender{err: assert.AnError}

	require.NoError(t, newJobs(store, sender, time.Now()).SendLowCreditReminders(context.Background()))
	_, touched := store.notified[org]
	assert.False(t, touched, "a failed send must retry on the next sweep")
}

func TestRenewalReminders(t *testing.T) {
	now := time.Now()
	inWindow := uuid.New()
	farOut := uuid.New()
	alreadySent := uuid.New()
	past := uuid.New()

	store := newFake()
	store.subs = []UpcomingRenewal{
		{SubscriptionID: inWindow, OrgName: "Soon", PeriodEnd: now.Add(24 * time.Hour), OwnerEmail: "soon@example.com"},
		{SubscriptionID: farOut, OrgName: "Later", PeriodEnd: now.Add(10 * 24 * time.Hour), OwnerEmail: "later@example.com"},
		{SubscriptionID: alreadySent, OrgName: "Done", PeriodEnd: now.Add(24 * time.Hour), ReminderSent: true, OwnerEmail: "done@example.com"},
		{SubscriptionID: past, OrgName: "Past", PeriodEnd: now.Add(-time.Hour), OwnerEmail: "past@example.com"},
	}
	sender := &fakeSender{}

	require.NoError(t, newJobs(store, sender, now).SendRenewalReminders(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "soon@example.com", sender.sent[0].to)
	assert.Equal(t, []uuid.UUID{inWindow}, store.remindersSent)
}

func TestPurgeDeletedOrgsUsesRetentionCutoff(t *testing.T) {
	now := time.Now()
	store := newFake()
	store.purged = 2

	require.NoError(t, newJobs(store, &fakeSender{}, now).PurgeDeletedOrgs(context.Background()))
	assert.WithinDuration(t, now.Add(-30*24*time.Hour), store.purgeCutoff, time.Second)
}
