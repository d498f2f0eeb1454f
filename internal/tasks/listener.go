package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pricing/internal/catalog"
	"github.com/noah-isme/backend-pricing/internal/resilience"
)

// Listener turns catalog NOTIFY events into offers:changed tasks.
type Listener struct {
	Pool    *pgxpool.Pool
	Enqueue func(ctx context.Context, reason string) error
	Logger  zerolog.Logger
	// RetryBackoff is the first reconnect delay; later ones grow exponentially.
	RetryBackoff time.Duration
}

// Run listens until ctx is cancelled, reconnecting after failures.
func (l Listener) Run(ctx context.Context) error {
	base := l.RetryBackoff
	if base <= 0 {
		base = time.Second
	}
	for attempt := 1; ; attempt++ {
		started := time.Now()
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A connection that stayed up for a while starts the backoff over.
		if time.Since(started) > time.Minute {
			attempt = 1
		}
		wait := resilience.Backoff(base, attempt, 0.2, 30*time.Second)
		l.Logger.Error().Err(err).Dur("backoff", wait).Int("attempt", attempt).Msg("catalog listener interrupted")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (l Listener) listen(ctx context.Context) error {
	if l.Pool == nil || l.Enqueue == nil {
		return errors.New("tasks: listener is not configured")
	}
	conn, err := l.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, "LISTEN "+catalog.ChangeChannel); err != nil {
		return err
	}
	l.Logger.Info().Str("channel", catalog.ChangeChannel).Msg("listening for catalog changes")
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if err := l.Enqueue(ctx, n.Payload); err != nil {
			l.Logger.Error().Err(err).Str("table", n.Payload).Msg("enqueue offers changed")
		}
	}
}
