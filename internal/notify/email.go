package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Sender delivers a plain-text email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Email is a message captured by InMemorySender.
type Email struct {
	To      string
	Subject string
	Body    string
}

// InMemorySender records messages instead of sending them.
type InMemorySender struct {
	mu     sync.Mutex
	Outbox []Email
}

// Send records the email in memory.
func (m *InMemorySender) Send(_ context.Context, to, subject, body string) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *InMemorySender) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.Outbox...)
}

// LogSender writes emails to the log. It is the default when no SMTP relay
// is configured.
type LogSender struct {
	Logger zerolog.Logger
}

// Send logs the message envelope.
func (l LogSender) Send(_ context.Context, to, subject, body string) error {
	l.Logger.Info().Str("to", to).Str("subject", subject).Int("body_bytes", len(body)).Msg("email (log sender)")
	return nil
}

// SMTPSender relays mail through an SMTP server using PLAIN auth when a
// username is set.
type SMTPSender struct {
	Addr     string
	Username string
	Password string
	From     string
}

// Send implements Sender.
func (s SMTPSender) Send(_ context.Context, to, subject, body string) error {
	host := s.Addr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(s.Addr, auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
