// Package email sends operator escalation mail. It is a secondary channel
// behind SMS and push; failures are logged by callers and never propagate.
package email

import (
	"context"
	"fmt"

	"sasquatch_backend/platform/config"

	"github.com/wneessen/go-mail"
)

// Sender delivers operator mail over SMTP. Nil when email is disabled.
type Sender struct {
	client   *mail.Client
	from     string
	operator string
}

// NewSender builds the SMTP sender, or nil when email is not configured.
func NewSender(cfg config.EmailConfig) (*Sender, error) {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" || cfg.GetOperatorEmail() == "" {
		return nil, nil
	}

	client, err := mail.NewClient(cfg.GetSMTPHost(),
		mail.WithPort(cfg.GetSMTPPort()),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.GetSMTPUser()),
		mail.WithPassword(cfg.GetSMTPPassword()),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Sender{
		client:   client,
		from:     cfg.GetEmailFromAddress(),
		operator: cfg.GetOperatorEmail(),
	}, nil
}

// SendEscalation mails the operator about a conversation needing a human.
func (s *Sender) SendEscalation(ctx context.Context, subject, body string) error {
	if s == nil {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return err
	}
	if err := msg.To(s.operator); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	return s.client.DialAndSendWithContext(ctx, msg)
}
