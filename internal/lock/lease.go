// Package lock provides Redis-backed leases for work that must run on one
// replica at a time.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLeaseLost is returned when the lease expired or was taken over while fn
// was still running.
var ErrLeaseLost = errors.New("lock: lease lost")

var (
	renewScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
	releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)
)

// Lease is a renewable Redis lock. The holder keeps it alive by renewing at a
// third of TTL, so a crashed holder frees it within TTL.
type Lease struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
	// RetryEvery is how often a waiting replica retries acquisition.
	RetryEvery time.Duration
}

// Hold blocks until the lease is acquired, then runs fn while renewing it.
// fn's context is cancelled when the lease is lost; Hold then returns
// ErrLeaseLost so the caller can compete again.
func (l Lease) Hold(ctx context.Context, fn func(context.Context) error) error {
	if l.Client == nil || l.Key == "" {
		return errors.New("lock: lease is not configured")
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	retry := l.RetryEvery
	if retry <= 0 {
		retry = ttl / 3
	}
	token := uuid.NewString()

	for {
		ok, err := l.Client.SetNX(ctx, l.Key, token, ttl).Result()
		if err != nil && ctx.Err() == nil {
			return err
		}
		if ok {
			break
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	defer func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.Client, []string{l.Key}, token).Err()
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go l.renew(runCtx, cancel, token, ttl)

	err := fn(runCtx)
	if cause := context.Cause(runCtx); errors.Is(cause, ErrLeaseLost) {
		return ErrLeaseLost
	}
	return err
}

func (l Lease) renew(ctx context.Context, cancel context.CancelCauseFunc, token string, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := renewScript.Run(ctx, l.Client, []string{l.Key}, token, ttl.Milliseconds()).Int()
			if ctx.Err() != nil {
				return
			}
			if err != nil || n == 0 {
				cancel(ErrLeaseLost)
				return
			}
		}
	}
}
