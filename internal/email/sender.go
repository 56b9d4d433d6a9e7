package email

import (
	"context"

	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/logger"
)

// Reminder is the content of a next-action reminder mail.
type Reminder struct {
	RecipientName string
	LeadName      string
	Company       string
	Contact       string
	NextAction    string
	DueLabel      string
}

type Sender interface {
	SendNextActionReminder(ctx context.Context, toEmail string, reminder Reminder) error
}

type NoopSender struct{}

func (NoopSender) SendNextActionReminder(ctx context.Context, toEmail string, reminder Reminder) error {
	return nil
}

// NewSender returns an SMTP sender when SMTP is configured and a no-op
// sender otherwise.
func NewSender(cfg config.SMTPConfig, log *logger.Logger) Sender {
	if !cfg.IsSMTPEnabled() {
		log.Info("smtp not configured, reminder mails disabled")
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetSMTPFromAddress(),
		cfg.GetSMTPFromName(),
	)
}
