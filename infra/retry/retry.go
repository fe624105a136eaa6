// Package retry runs operations with a bounded number of attempts and
// exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxAttempts matches the actuation retry cap.
const DefaultMaxAttempts = 10

// Config tunes a Retrier.
type Config struct {
	MaxAttempts     int           `json:"max_attempts"`
	InitialInterval time.Duration `json:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 10 * time.Second
	}
}

// Retrier retries failed operations.
type Retrier struct {
	cfg    Config
	notify func(err error, wait time.Duration)
}

// New returns a Retrier. notify, when not nil, is called before every wait.
func New(cfg Config, notify func(err error, wait time.Duration)) *Retrier {
	cfg.SetDefaults()
	return &Retrier{cfg: cfg, notify: notify}
}

// Do runs op until it succeeds, returns a Permanent error, the context ends
// or the attempts are exhausted. The last error is returned.
func (r *Retrier) Do(ctx context.Context, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.cfg.InitialInterval
	exp.MaxInterval = r.cfg.MaxInterval
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.cfg.MaxAttempts-1)), ctx)

	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		return op()
	}, b, r.notify)
	if err != nil {
		return fmt.Errorf("after %d attempt(s): %w", attempts, err)
	}
	return nil
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error { return backoff.Permanent(err) }
