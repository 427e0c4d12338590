package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker wraps a Sender in a circuit breaker so an unreachable mail server
// fails fast instead of stalling every login.
type Breaker struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

// BreakerSettings tunes when the breaker opens and how long it stays open.
type BreakerSettings struct {
	MaxFailures uint32
	OpenFor     time.Duration
}

// NewBreaker wraps next. Zero settings fall back to three consecutive
// failures and a 30 second open period.
func NewBreaker(next Sender, settings BreakerSettings, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 3
	}
	if settings.OpenFor <= 0 {
		settings.OpenFor = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "email",
		MaxRequests: 1,
		Timeout:     settings.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return &Breaker{next: next, cb: cb}
}

// Send forwards to the wrapped Sender unless the breaker is open, in which
// case it returns gobreaker.ErrOpenState.
func (b *Breaker) Send(ctx context.Context, to, subject, body string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, to, subject, body)
	})
	return err
}

// State reports the breaker state, for health output.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
