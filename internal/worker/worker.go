package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nimbus-saas/backend/internal/email"
	"github.com/nimbus-saas/backend/internal/models"
	"github.com/nimbus-saas/backend/pkg/queue"
)

// DeliveryLog records delivery attempts. Implemented by the emaillogs
// repository; nil disables recording.
type DeliveryLog interface {
	Record(ctx context.Context, recipient, template, status, errMsg string) error
}

// EmailProcessor drains the email queue and delivers through a Sender.
type EmailProcessor struct {
	sender email.Sender
	queue  *queue.Queue
	log    DeliveryLog
	logger *zap.Logger
}

// NewEmailProcessor creates an email delivery worker.
func NewEmailProcessor(sender email.Sender, q *queue.Queue, log DeliveryLog, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{sender: sender, queue: q, log: log, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := p.sender.Send(ctx, payload.Recipient, payload.Template, payload.Data); err != nil {
		p.record(ctx, payload, models.EmailStatusFailed, err.Error())
		return fmt.Errorf("send: %w", err)
	}
	p.record(ctx, payload, models.EmailStatusSent, "")
	p.logger.Info("email delivered",
		zap.String("job_id", job.ID), zap.String("template", payload.Template))
	return nil
}

// record is best-effort; the delivery log never fails a job.
func (p *EmailProcessor) record(ctx context.Context, payload queue.EmailPayload, status, errMsg string) {
	if p.log == nil {
		return
	}
	if err := p.log.Record(ctx, payload.Recipient, payload.Template, status, errMsg); err != nil {
		p.logger.Warn("record email delivery", zap.Error(err))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
