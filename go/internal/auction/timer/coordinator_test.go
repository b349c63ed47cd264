package timer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func secs(v int) *int { return &v }

func TestReconcileReplacesCountdown(t *testing.T) {
	c := NewCoordinator(clockwork.NewFakeClock())
	item := uuid.New()

	c.Reconcile(item, secs(30), true)
	for i := 0; i < 5; i++ {
		c.Tick()
	}
	_, rem, ok := c.Remaining()
	require.True(t, ok)
	require.Equal(t, 25, rem)

	// authoritative value wins over local drift in either direction
	c.Reconcile(item, secs(27), true)
	_, rem, _ = c.Remaining()
	require.Equal(t, 27, rem)
	c.Reconcile(item, secs(10), true)
	_, rem, _ = c.Remaining()
	require.Equal(t, 10, rem)
}

func TestPausedCountdownHolds(t *testing.T) {
	c := NewCoordinator(clockwork.NewFakeClock())
	item := uuid.New()
	c.Reconcile(item, secs(5), false)
	c.Tick()
	c.Tick()
	_, rem, _ := c.Remaining()
	require.Equal(t, 5, rem)

	c.Resume()
	c.Tick()
	_, rem, _ = c.Remaining()
	require.Equal(t, 4, rem)

	c.Pause()
	c.Tick()
	_, rem, _ = c.Remaining()
	require.Equal(t, 4, rem)
}

func TestElapsedFiresOnce(t *testing.T) {
	c := NewCoordinator(clockwork.NewFakeClock())
	item := uuid.New()
	c.Reconcile(item, secs(2), true)
	c.Tick()
	c.Tick()
	c.Tick()
	c.Reconcile(item, secs(0), true)

	select {
	case e := <-c.Elapsed():
		require.Equal(t, item, e.ItemID)
	default:
		t.Fatal("expected elapsed signal")
	}
	select {
	case <-c.Elapsed():
		t.Fatal("elapsed raised twice")
	default:
	}

	// a fresh bid restarts the countdown and re-arms the signal
	c.Reconcile(item, secs(1), true)
	c.Tick()
	require.Len(t, c.Elapsed(), 1)
}

func TestNilSecondsClears(t *testing.T) {
	c := NewCoordinator(clockwork.NewFakeClock())
	c.Reconcile(uuid.New(), secs(9), true)
	c.Reconcile(uuid.New(), nil, true)
	_, _, ok := c.Remaining()
	require.False(t, ok)
}

func TestRunTicksWithClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCoordinator(clock)
	item := uuid.New()
	c.Reconcile(item, secs(3), true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		want := 2 - i
		require.Eventually(t, func() bool {
			_, rem, _ := c.Remaining()
			return rem == want
		}, time.Second, 5*time.Millisecond)
	}

	select {
	case e := <-c.Elapsed():
		require.Equal(t, item, e.ItemID)
	case <-time.After(time.Second):
		t.Fatal("expected elapsed signal")
	}
}
