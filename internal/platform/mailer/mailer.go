// Package mailer delivers HTML email over SMTP and renders the transactional
// templates (group invites and updates, vendor approval, password reset).
package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/foodrient/foodrient-backend/internal/platform/config"
)

// DefaultFrom is the sender used for system mail.
const DefaultFrom = "support@foodrient.com"

// Message is a single HTML email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP sender, or a LogSender when no SMTP host is configured.
func New(cfg config.SMTPConfig, log *zap.Logger) (Sender, error) {
	if cfg.Host == "" {
		log.Warn("SMTP_HOST not set, emails will only be logged")
		return &LogSender{log: log}, nil
	}
	return NewSMTP(cfg)
}

// SMTP sends mail through a relay with go-mail.
type SMTP struct {
	client *mail.Client
}

func NewSMTP(cfg config.SMTPConfig) (*SMTP, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port), mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTP{client: client}, nil
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m, err := build(msg)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func build(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	from := msg.From
	if from == "" {
		from = DefaultFrom
	}
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}

// LogSender writes messages to the log instead of sending them. Used in
// development when no relay is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender { return &LogSender{log: log} }

func (l *LogSender) Send(_ context.Context, msg Message) error {
	if _, err := build(msg); err != nil {
		return err
	}
	l.log.Info("email (not sent)",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
