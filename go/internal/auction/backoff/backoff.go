// Package backoff paces reconnect attempts.
package backoff

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrExhausted is returned once MaxAttempts waits have been taken.
var ErrExhausted = errors.New("backoff: attempts exhausted")

type Strategy interface {
	Duration(attempt int, start time.Duration) time.Duration
}

type Config struct {
	Start       time.Duration `yaml:"start" validate:"gt=0"`
	Limit       time.Duration `yaml:"limit" validate:"gtefield=Start"`
	MaxAttempts int           `yaml:"max_attempts" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{Start: 500 * time.Millisecond, Limit: 30 * time.Second, MaxAttempts: 10}
}

type Backoff struct {
	clock    clockwork.Clock
	strategy Strategy
	start    time.Duration
	limit    time.Duration
	max      int
	attempt  int
	next     time.Duration
}

func New(clock clockwork.Clock, strategy Strategy, cfg Config) *Backoff {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	b := &Backoff{clock: clock, strategy: strategy, start: cfg.Start, limit: cfg.Limit, max: cfg.MaxAttempts}
	b.Reset()
	return b
}

func NewExponential(clock clockwork.Clock, cfg Config) *Backoff {
	return New(clock, exponential{}, cfg)
}

func (b *Backoff) Reset() {
	b.attempt = 0
	b.next = b.duration()
}

// Attempt is the number of completed waits since the last Reset.
func (b *Backoff) Attempt() int { return b.attempt }

// Next is the duration the next Wait will sleep.
func (b *Backoff) Next() time.Duration { return b.next }

// Wait sleeps for the next period. A MaxAttempts of 0 never exhausts.
func (b *Backoff) Wait(ctx context.Context) error {
	if b.max > 0 && b.attempt >= b.max {
		return ErrExhausted
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.clock.After(b.next):
	}
	b.attempt++
	b.next = b.duration()
	return nil
}

func (b *Backoff) duration() time.Duration {
	d := b.strategy.Duration(b.attempt, b.start)
	if b.limit > 0 && (d > b.limit || d <= 0) {
		d = b.limit
	}
	return d
}

type exponential struct{}

func (exponential) Duration(attempt int, start time.Duration) time.Duration {
	// 2^62 overflows once multiplied by any realistic start
	if attempt > 30 {
		attempt = 30
	}
	return time.Duration(math.Pow(2, float64(attempt))) * start
}
