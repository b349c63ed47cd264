package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestExponentialDurations(t *testing.T) {
	b := NewExponential(clockwork.NewFakeClock(), Config{Start: 100 * time.Millisecond, Limit: time.Second})
	want := []time.Duration{100, 200, 400, 800, 1000, 1000}
	for i, w := range want {
		check.Equal(t, w*time.Millisecond, b.strategyNext(i))
	}
}

// strategyNext mirrors duration() for an arbitrary attempt.
func (b *Backoff) strategyNext(attempt int) time.Duration {
	saved := b.attempt
	b.attempt = attempt
	d := b.duration()
	b.attempt = saved
	return d
}

func TestWaitAdvancesAndExhausts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewExponential(clock, Config{Start: time.Second, Limit: 4 * time.Second, MaxAttempts: 2})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- b.Wait(ctx) }()
	assert.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	check.NoError(t, <-done)
	check.Equal(t, 1, b.Attempt())
	check.Equal(t, 2*time.Second, b.Next())

	go func() { done <- b.Wait(ctx) }()
	assert.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Second)
	check.NoError(t, <-done)

	check.True(t, errors.Is(b.Wait(ctx), ErrExhausted))

	b.Reset()
	check.Equal(t, 0, b.Attempt())
	check.Equal(t, time.Second, b.Next())
}

func TestWaitHonorsCancel(t *testing.T) {
	b := NewExponential(clockwork.NewFakeClock(), DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	check.True(t, errors.Is(b.Wait(ctx), context.Canceled))
	check.Equal(t, 0, b.Attempt())
}
