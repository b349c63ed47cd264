package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
)

type flakyPublisher struct {
	mu       sync.Mutex
	failures map[uuid.UUID]int
	got      []int64
}

func (f *flakyPublisher) Publish(_ context.Context, env events.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures[env.EventID] > 0 {
		f.failures[env.EventID]--
		return errors.New("nats: timeout")
	}
	f.got = append(f.got, env.Sequence)
	return nil
}

func (f *flakyPublisher) sequences() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.got...)
}

type memArchive struct {
	mu   sync.Mutex
	recs []Record
}

func (m *memArchive) Archive(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func envelope(t *testing.T, seq int64) events.Envelope {
	env, err := events.NewEnvelope(uuid.New(), seq, events.TypeStateChanged, events.StateChangedPayload{Reason: "test"}, time.Now())
	require.NoError(t, err)
	return env
}

func TestRelayPublishesInOrderWithRetry(t *testing.T) {
	pub := &flakyPublisher{failures: map[uuid.UUID]int{}}
	archive := &memArchive{}
	relay := NewRelay(Config{MaxRetries: 3, RetryDelay: time.Millisecond}, clockwork.NewRealClock(), archive, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, relay.Start(ctx))
	require.Error(t, relay.Start(ctx))

	for seq := int64(1); seq <= 20; seq++ {
		env := envelope(t, seq)
		if seq%5 == 0 {
			pub.mu.Lock()
			pub.failures[env.EventID] = 2
			pub.mu.Unlock()
		}
		relay.Enqueue(env, state.Snapshot{Version: seq})
	}

	require.Eventually(t, func() bool { return len(pub.sequences()) == 20 }, 2*time.Second, 5*time.Millisecond)
	got := pub.sequences()
	for i, seq := range got {
		require.Equal(t, int64(i+1), seq)
	}

	stats := relay.Stats()
	require.Equal(t, uint64(20), stats.Published)
	require.Equal(t, uint64(0), stats.Failed)
	require.NotNil(t, stats.LastSent)

	archive.mu.Lock()
	require.Len(t, archive.recs, 20)
	archive.mu.Unlock()
}

func TestRelayGivesUpAfterRetries(t *testing.T) {
	pub := PublisherFunc(func(context.Context, events.Envelope) error { return errors.New("down") })
	relay := NewRelay(Config{MaxRetries: 1, RetryDelay: time.Millisecond}, clockwork.NewRealClock(), nil, pub)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, relay.Start(ctx))
	relay.Enqueue(envelope(t, 1), state.Snapshot{})

	require.Eventually(t, func() bool { return relay.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	relay.Wait()
}
