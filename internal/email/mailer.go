package email

import (
	"context"
	"time"

	"github.com/nimbus-saas/backend/pkg/queue"
)

// QueueMailer hands invite mail to the redis worker queue so the HTTP path
// never waits on SMTP.
type QueueMailer struct {
	queue        *queue.Queue
	inviteExpiry time.Duration
}

// NewQueueMailer creates a queue-backed mailer.
func NewQueueMailer(q *queue.Queue, inviteExpiry time.Duration) *QueueMailer {
	return &QueueMailer{queue: q, inviteExpiry: inviteExpiry}
}

// SendInvite enqueues an invite email job.
func (m *QueueMailer) SendInvite(ctx context.Context, to, orgName, token string) error {
	return m.queue.EnqueueEmail(ctx, queue.EmailPayload{
		Template:  TemplateInvite,
		Recipient: to,
		Data: map[string]string{
			"org_name":   orgName,
			"token":      token,
			"expires_at": time.Now().Add(m.inviteExpiry).Format("Jan 2, 2006"),
		},
	})
}

// SyncMailer sends invite mail inline through a Sender. Used when redis is
// not available.
type SyncMailer struct {
	sender       Sender
	inviteExpiry time.Duration
}

// NewSyncMailer creates a mailer that delivers synchronously.
func NewSyncMailer(sender Sender, inviteExpiry time.Duration) *SyncMailer {
	return &SyncMailer{sender: sender, inviteExpiry: inviteExpiry}
}

// SendInvite delivers the invite email inline.
func (m *SyncMailer) SendInvite(ctx context.Context, to, orgName, token string) error {
	return m.sender.Send(ctx, to, TemplateInvite, map[string]string{
		"org_name":   orgName,
		"token":      token,
		"expires_at": time.Now().Add(m.inviteExpiry).Format("Jan 2, 2006"),
	})
}
