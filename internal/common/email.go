package common

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// EmailAttachment is a file carried by an email.
type EmailAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Email represents a single outgoing message.
type Email struct {
	To          string
	Subject     string
	HTML        string
	Attachments []EmailAttachment
}

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	Send(ctx context.Context, msg Email) error
}

// InMemoryEmail provides a test-friendly email sender that records messages.
type InMemoryEmail struct {
	mu     sync.Mutex
	Outbox []Email
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(_ context.Context, msg Email) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outbox = append(m.Outbox, msg)
	return nil
}

// Sent returns a snapshot of the recorded messages.
func (m *InMemoryEmail) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.Outbox))
	copy(out, m.Outbox)
	return out
}

// LogEmailSender logs outgoing mail instead of delivering it.
type LogEmailSender struct {
	Logger zerolog.Logger
}

// Send implements EmailSender.
func (s LogEmailSender) Send(_ context.Context, msg Email) error {
	event := s.Logger.Info().Str("to", msg.To).Str("subject", msg.Subject)
	for _, a := range msg.Attachments {
		event = event.Str("attachment", a.Filename).Int("attachment_bytes", len(a.Data))
	}
	event.Msg("email queued")
	return nil
}
