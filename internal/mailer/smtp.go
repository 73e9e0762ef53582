package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// senderName is the display name on outgoing notifications; the address is
// the configured SMTP username, matching what the server authenticates as.
const senderName = "Courtbook"

// SMTPSender delivers message batches over SMTP with STARTTLS. One connection
// is opened per batch; the first failed send aborts the rest.
type SMTPSender struct{}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender() *SMTPSender {
	return &SMTPSender{}
}

// Send opens a connection to the configured server, authenticates, and sends
// each message individually. Returns on the first failure.
func (s *SMTPSender) Send(ctx context.Context, cfg *Config, msgs []Message) error {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}

	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("connecting to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	defer client.Close()

	for _, m := range msgs {
		msg := mail.NewMsg()
		if err := msg.FromFormat(senderName, cfg.Username); err != nil {
			return fmt.Errorf("setting sender: %w", err)
		}
		if err := msg.To(m.To); err != nil {
			return fmt.Errorf("setting recipient %q: %w", m.To, err)
		}
		msg.Subject(m.Subject)
		msg.SetBodyString(mail.TypeTextPlain, m.Body)

		if err := client.Send(msg); err != nil {
			return fmt.Errorf("sending to %q: %w", m.To, err)
		}
	}

	return nil
}
