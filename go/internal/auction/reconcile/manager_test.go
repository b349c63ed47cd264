package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/backoff"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
)

type chanStream struct {
	ch     chan events.Envelope
	once   sync.Once
	closed chan struct{}
}

func newChanStream() *chanStream {
	return &chanStream{ch: make(chan events.Envelope, 16), closed: make(chan struct{})}
}

func (s *chanStream) Next(ctx context.Context) (events.Envelope, error) {
	select {
	case env := <-s.ch:
		return env, nil
	case <-s.closed:
		return events.Envelope{}, apperr.Transport(errors.New("use of closed network connection"))
	case <-ctx.Done():
		return events.Envelope{}, ctx.Err()
	}
}

func (s *chanStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type fakeTransport struct {
	mu      sync.Mutex
	streams []*chanStream
	fail    bool
}

func (t *fakeTransport) Dial(ctx context.Context, _ uuid.UUID) (Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail {
		return nil, apperr.Transport(errors.New("connection refused"))
	}
	s := newChanStream()
	t.streams = append(t.streams, s)
	return s, nil
}

func (t *fakeTransport) dials() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}

func (t *fakeTransport) latest() *chanStream {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streams[len(t.streams)-1]
}

type fakeSource struct {
	mu    sync.Mutex
	snap  state.Snapshot
	pulls atomic.Int32
}

func (s *fakeSource) Snapshot(ctx context.Context, _ uuid.UUID) (state.Snapshot, error) {
	s.pulls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

func (s *fakeSource) set(snap state.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

type ManagerTestSuite struct {
	suite.Suite

	f         fixture
	clock     *clockwork.FakeClock
	transport *fakeTransport
	source    *fakeSource
	m         *Manager

	mu     sync.Mutex
	states []ConnState
}

func TestManager(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func (s *ManagerTestSuite) SetupTest() {
	s.f = newFixture()
	s.clock = clockwork.NewFakeClock()
	s.transport = &fakeTransport{}
	s.source = &fakeSource{snap: s.f.snapshot(1)}
	s.states = nil

	cfg := DefaultConfig()
	cfg.Backoff = backoff.Config{Start: time.Second, Limit: 4 * time.Second, MaxAttempts: 3}
	m, err := NewManager(s.f.auctionID, cfg, s.transport, s.source,
		WithClock(s.clock),
		OnStateChange(func(cs ConnState) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.states = append(s.states, cs)
		}),
	)
	s.Require().NoError(err)
	s.m = m
}

func (s *ManagerTestSuite) TearDownTest() {
	s.Require().NoError(s.m.Close())
}

func (s *ManagerTestSuite) seen() []ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ConnState(nil), s.states...)
}

func (s *ManagerTestSuite) eventually(cond func() bool) {
	s.Require().Eventually(cond, 2*time.Second, 5*time.Millisecond)
}

func (s *ManagerTestSuite) TestConnectPullsImmediately() {
	s.Require().NoError(s.m.Connect(context.Background()))
	s.eventually(func() bool { return s.m.State() == Connected })
	s.eventually(func() bool { return s.m.View().Version == 1 })
	s.GreaterOrEqual(s.source.pulls.Load(), int32(1))
}

func (s *ManagerTestSuite) TestSecondConnectIsRejected() {
	s.Require().NoError(s.m.Connect(context.Background()))
	s.ErrorIs(s.m.Connect(context.Background()), ErrConnectInFlight)
}

func (s *ManagerTestSuite) TestEventIsFollowedByPull() {
	s.Require().NoError(s.m.Connect(context.Background()))
	s.eventually(func() bool { return s.source.pulls.Load() == 1 })

	env := s.f.event(s.T(), 2, events.TypeItemAdvanced, events.ItemAdvancedPayload{ItemID: s.f.itemA, NextBid: 1000, TimerSecondsRemaining: secsPtr(30)})
	s.source.set(func() state.Snapshot {
		snap := s.f.snapshot(2)
		item := snap.Items[0]
		snap.CurrentItem = &item
		snap.TimerSecondsRemaining = secsPtr(29)
		return snap
	}())
	s.transport.latest().ch <- env

	s.eventually(func() bool { return s.source.pulls.Load() >= 2 })
	s.eventually(func() bool {
		id, secs, ok := s.m.Timer().Remaining()
		return ok && id == s.f.itemA && secs == 29
	})
}

func (s *ManagerTestSuite) TestReconnectAfterDrop() {
	s.Require().NoError(s.m.Connect(context.Background()))
	s.eventually(func() bool { return s.source.pulls.Load() == 1 })

	s.transport.latest().Close()
	s.eventually(func() bool {
		s.clock.Advance(time.Second)
		return s.transport.dials() == 2 && s.m.State() == Connected
	})
	s.eventually(func() bool { return s.source.pulls.Load() >= 2 })
	s.Contains(s.seen(), Disconnected)
}

func (s *ManagerTestSuite) TestGivesUpAfterBackoff() {
	s.transport.mu.Lock()
	s.transport.fail = true
	s.transport.mu.Unlock()

	s.Require().NoError(s.m.Connect(context.Background()))
	done := s.m.Done()
	s.eventually(func() bool {
		s.clock.Advance(4 * time.Second)
		select {
		case <-done:
			return true
		default:
			return false
		}
	})
	s.ErrorIs(s.m.Err(), backoff.ErrExhausted)
	s.Equal(Disconnected, s.m.State())

	// a fresh session may be started after giving up
	s.Require().NoError(s.m.Connect(context.Background()))
	s.NoError(s.m.Err())
}

func TestCloseRacingConnectLeavesNoSession(t *testing.T) {
	f := newFixture()
	for i := 0; i < 200; i++ {
		m, err := NewManager(f.auctionID, DefaultConfig(), &fakeTransport{}, &fakeSource{snap: f.snapshot(1)}, WithClock(clockwork.NewFakeClock()))
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Connect(context.Background())
		}()
		require.NoError(t, m.Close())
		wg.Wait()

		require.Equal(t, Closed, m.State())
		select {
		case <-m.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("session still running after close")
		}
	}
}

func TestPullsContinueWhileFeedIsDown(t *testing.T) {
	f := newFixture()
	clock := clockwork.NewFakeClock()
	source := &fakeSource{snap: f.snapshot(7)}
	cfg := DefaultConfig()
	cfg.Backoff = backoff.Config{Start: time.Minute, Limit: time.Minute}
	m, err := NewManager(f.auctionID, cfg, &fakeTransport{fail: true}, source, WithClock(clock))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Connect(context.Background()))
	require.Eventually(t, func() bool {
		clock.Advance(cfg.FastPoll)
		return m.View().Version == 7
	}, 2*time.Second, 5*time.Millisecond)
	require.NotEqual(t, Connected, m.State())
}

func TestHandleEventIgnoresOtherAuctions(t *testing.T) {
	f := newFixture()
	m, err := NewManager(f.auctionID, DefaultConfig(), &fakeTransport{}, &fakeSource{}, WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)

	other := newFixture()
	env := other.event(t, 1, events.TypeAuctionStarted, events.AuctionStartedPayload{})
	require.Equal(t, Superseded, m.HandleEvent(env))
}
