// Package mailer sends the portal's transactional mail over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wneessen/go-mail"

	"webHostingPortal/models"
)

// ErrNotConfigured is returned when SMTP settings are missing.
var ErrNotConfigured = errors.New("SMTP settings are not configured. Please configure them in the admin panel.")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SettingsSource returns the SMTP settings in effect right now.
type SettingsSource func(ctx context.Context) (models.SMTPSettings, error)

// SMTPSender dials the configured relay for every message, so settings
// changes apply without a restart.
type SMTPSender struct {
	AppName  string
	Settings SettingsSource
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	cfg, err := s.Settings(ctx)
	if err != nil {
		return fmt.Errorf("load smtp settings: %w", err)
	}
	if !cfg.Configured() {
		return ErrNotConfigured
	}
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.AppName, cfg.User); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Pass),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// Outbox records messages instead of sending them.
type Outbox struct {
	mu   sync.Mutex
	msgs []Message
	Err  error
}

func (o *Outbox) Send(_ context.Context, m Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.msgs = append(o.msgs, m)
	return nil
}

// Messages returns a copy of everything sent so far.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.msgs))
	copy(out, o.msgs)
	return out
}

// Last returns the most recent message, if any.
func (o *Outbox) Last() (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.msgs) == 0 {
		return Message{}, false
	}
	return o.msgs[len(o.msgs)-1], true
}
