package notify

import (
	"context"

	mail "github.com/wneessen/go-mail"

	"github.com/spec-kit/support-agent/internal/config"
	apperrors "github.com/spec-kit/support-agent/pkg/util"
)

// EmailSender delivers a single message through the configured SMTP relay.
// No retry, no queueing.
type EmailSender struct {
	cfg config.SMTPConfig
}

// NewEmailSender builds a sender from configuration.
func NewEmailSender(cfg config.SMTPConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Send opens an SMTP session, authenticates, and sends one message.
func (s *EmailSender) Send(ctx context.Context, to, subject, body string, html bool) error {
	if s.cfg.Host == "" {
		return apperrors.NewConfigurationError("SMTP not configured")
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.User); err != nil {
		return apperrors.NewDeliveryError("invalid sender address", err)
	}
	if err := msg.To(to); err != nil {
		return apperrors.NewDeliveryError("invalid recipient address", err)
	}
	msg.Subject(subject)
	if html {
		msg.SetBodyString(mail.TypeTextHTML, body)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, body)
	}

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Pass),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return apperrors.NewDeliveryError("smtp client setup failed", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return apperrors.NewDeliveryError("email delivery failed", err)
	}
	return nil
}
