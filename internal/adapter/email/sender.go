// Package email delivers the executive summary by mail.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/ticket-metrics/internal/domain"
	"github.com/wneessen/go-mail"
)

// Subject is the fixed subject line of report mails.
const Subject = "Support Ticket Analysis Report"

// Settings configures an SMTP sender.
type Settings struct {
	Host     string
	Port     int
	From     string
	To       []string
	Username string
	Password string
}

type sendFunc func(ctx context.Context, s Settings, msg *mail.Msg) error

// SMTPSender mails the executive text with the summary JSON attached.
// It implements pipeline.Sink.
type SMTPSender struct {
	settings Settings
	logger   *slog.Logger
	send     sendFunc
	now      func() time.Time
}

// NewSMTPSender creates an SMTPSender. PLAIN auth is used when a username is set.
func NewSMTPSender(s Settings, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{settings: s, logger: logger, send: dialAndSend, now: time.Now}
}

func (s *SMTPSender) Name() string { return "email" }

// Deliver sends one message to every configured recipient.
func (s *SMTPSender) Deliver(ctx context.Context, r domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := buildMessage(s.settings.From, s.settings.To, r, s.now())
	if err != nil {
		return err
	}
	if err := s.send(ctx, s.settings, msg); err != nil {
		return fmt.Errorf("send mail via %s:%d: %w", s.settings.Host, s.settings.Port, err)
	}
	s.logger.Info("executive summary emailed", "to", s.settings.To, "run_id", r.Bundle.RunID)
	return nil
}

// LogSender records what would have been mailed. Used when no SMTP host is
// configured.
type LogSender struct {
	to     []string
	logger *slog.Logger
}

func NewLogSender(to []string, logger *slog.Logger) *LogSender {
	return &LogSender{to: to, logger: logger}
}

func (s *LogSender) Name() string { return "email" }

func (s *LogSender) Deliver(_ context.Context, r domain.Report) error {
	s.logger.Info("email delivery skipped, no SMTP host",
		"subject", Subject,
		"to", s.to,
		"run_id", r.Bundle.RunID,
		"body_bytes", len(r.Executive),
	)
	return nil
}

// buildMessage renders the executive text with the summary JSON attached.
func buildMessage(from string, to []string, r domain.Report, date time.Time) (*mail.Msg, error) {
	summary, err := json.MarshalIndent(r.Bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary attachment: %w", err)
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(to...); err != nil {
		return nil, fmt.Errorf("set recipients: %w", err)
	}
	m.Subject(Subject)
	m.SetDateWithValue(date)
	m.SetBodyString(mail.TypeTextPlain, r.Executive)
	if err := m.AttachReader("summary.json", bytes.NewReader(summary),
		mail.WithFileContentType(mail.ContentType("application/json"))); err != nil {
		return nil, fmt.Errorf("attach summary: %w", err)
	}
	return m, nil
}

// clientOptions maps Settings onto go-mail options. STARTTLS is used when the
// server offers it; PLAIN auth only when a username is set.
func clientOptions(s Settings) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.Username),
			mail.WithPassword(s.Password),
		)
	}
	return opts
}

func dialAndSend(ctx context.Context, s Settings, msg *mail.Msg) error {
	client, err := mail.NewClient(s.Host, clientOptions(s)...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
