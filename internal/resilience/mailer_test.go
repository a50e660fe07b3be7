package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/resilience"
)

type flakySender struct {
	err   error
	calls int
}

func (f *flakySender) Send(context.Context, common.Email) error {
	f.calls++
	return f.err
}

func TestMailerOpensAfterFailures(t *testing.T) {
	relay := &flakySender{err: errors.New("relay down")}
	mailer := resilience.Mailer{Next: relay, Breaker: resilience.NewBreaker(2, 0.5, time.Minute)}
	ctx := context.Background()
	msg := common.Email{To: "buyer@example.com", Subject: "Invoice INV-1"}

	require.EqualError(t, mailer.Send(ctx, msg), "relay down")
	require.EqualError(t, mailer.Send(ctx, msg), "relay down")
	require.ErrorIs(t, mailer.Send(ctx, msg), resilience.ErrOpenCircuit)
	require.Equal(t, 2, relay.calls)
}

func TestMailerDeliversWhenClosed(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	mailer := resilience.Mailer{Next: outbox, Breaker: resilience.NewBreaker(1, 0.5, time.Minute)}

	require.NoError(t, mailer.Send(context.Background(), common.Email{To: "buyer@example.com"}))
	require.Len(t, outbox.Sent(), 1)
}

func TestMailerCancellationDoesNotTrip(t *testing.T) {
	relay := &flakySender{err: context.Canceled}
	breaker := resilience.NewBreaker(1, 0.5, time.Minute)
	mailer := resilience.Mailer{Next: relay, Breaker: breaker}

	require.ErrorIs(t, mailer.Send(context.Background(), common.Email{}), context.Canceled)
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestMailerRequiresSender(t *testing.T) {
	require.Error(t, resilience.Mailer{}.Send(context.Background(), common.Email{}))
}
