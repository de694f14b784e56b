package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/nimbus-saas/backend/config"
)

// Template names understood by Render.
const (
	TemplateInvite          = "invite"
	TemplateLowCredit       = "low_credit"
	TemplateRenewalReminder = "renewal_reminder"
)

// Sender delivers a templated email.
type Sender interface {
	Send(ctx context.Context, to, template string, data map[string]string) error
}

// Render produces subject and body for a template. Unknown templates error so
// a bad job lands in the DLQ instead of sending an empty mail.
func Render(template string, data map[string]string) (subject, body string, err error) {
	get := func(k string) string { return data[k] }
	switch template {
	case TemplateInvite:
		subject = fmt.Sprintf("You've been invited to %s", get("org_name"))
		body = fmt.Sprintf(
			"You have been invited to join %s.\n\nUse this token to accept the invite: %s\n\nThe invite expires on %s.",
			get("org_name"), get("token"), get("expires_at"))
	case TemplateLowCredit:
		subject = fmt.Sprintf("%s is running low on credits", get("org_name"))
		body = fmt.Sprintf(
			"Your organization %s has %s credits left. Top up or renew to avoid interruption.",
			get("org_name"), get("credits"))
	case TemplateRenewalReminder:
		subject = fmt.Sprintf("Your %s subscription renews soon", get("org_name"))
		body = fmt.Sprintf(
			"The subscription for %s renews on %s. No action is needed unless you want to change your plan.",
			get("org_name"), get("period_end"))
	default:
		return "", "", fmt.Errorf("unknown email template: %q", template)
	}
	return subject, body, nil
}

// SMTPSender delivers mail over plain SMTP with optional auth.
type SMTPSender struct {
	cfg config.EmailConfig
}

// NewSMTPSender creates an SMTP-backed sender.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send renders the template and submits it to the configured SMTP host.
func (s *SMTPSender) Send(_ context.Context, to, template string, data map[string]string) error {
	subject, body, err := Render(template, data)
	if err != nil {
		return err
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.cfg.FromName, s.cfg.FromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n\r\n", subject)
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}
	return smtp.SendMail(addr, auth, s.cfg.FromAddress, []string{to}, []byte(msg.String()))
}

// LogSender logs mail instead of sending it. Used when SMTP is unconfigured,
// typically in development.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the rendered mail.
func (s *LogSender) Send(_ context.Context, to, template string, data map[string]string) error {
	subject, body, err := Render(template, data)
	if err != nil {
		return err
	}
	s.logger.Info("email (log sender)",
		zap.String("to", to),
		zap.String("template", template),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}

// NewSenderFromConfig picks SMTP when a host is configured, the log sender
// otherwise.
func NewSenderFromConfig(cfg config.EmailConfig, logger *zap.Logger) Sender {
	if cfg.SMTPHost != "" {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(logger)
}
