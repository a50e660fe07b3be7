package resilience

import (
	"context"
	"errors"

	"github.com/noah-isme/toko-admin/internal/common"
)

// Mailer guards an EmailSender with a breaker. While the breaker is open Send
// fails fast with ErrOpenCircuit and the caller's task is retried later.
type Mailer struct {
	Next    common.EmailSender
	Breaker *Breaker
}

// Send implements common.EmailSender.
func (m Mailer) Send(ctx context.Context, msg common.Email) error {
	if m.Next == nil {
		return errors.New("resilience: email sender not configured")
	}
	if m.Breaker == nil {
		return m.Next.Send(ctx, msg)
	}
	return m.Breaker.Do(ctx, isCallerError, func(ctx context.Context) error {
		return m.Next.Send(ctx, msg)
	})
}

func isCallerError(err error) bool {
	return errors.Is(err, context.Canceled)
}
