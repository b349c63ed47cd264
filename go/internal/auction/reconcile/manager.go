// Package reconcile keeps a subscriber's view of an auction converged with
// the authority. Pushed events are applied idempotently and every one of
// them is followed by a full-state pull; pulls also run on a timer and on
// every (re)connect.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/backoff"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/auction/timer"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

var (
	ErrConnectInFlight = errors.New("reconcile: connection attempt already in flight")
	ErrClosed          = errors.New("reconcile: manager closed")
)

type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
	Closed
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Config struct {
	FastPoll    time.Duration  `yaml:"fast_poll" validate:"gt=0"`
	SlowPoll    time.Duration  `yaml:"slow_poll" validate:"gtefield=FastPoll"`
	PullTimeout time.Duration  `yaml:"pull_timeout" validate:"gt=0"`
	DedupeSize  int            `yaml:"dedupe_size" validate:"gte=0"`
	Backoff     backoff.Config `yaml:"backoff"`
}

func DefaultConfig() Config {
	return Config{
		FastPoll:    2 * time.Second,
		SlowPoll:    10 * time.Second,
		PullTimeout: 5 * time.Second,
		DedupeSize:  1024,
		Backoff:     backoff.DefaultConfig(),
	}
}

type Option func(*Manager)

// OnUpdate is called with the local view after every applied change.
func OnUpdate(fn func(state.Snapshot)) Option {
	return func(m *Manager) { m.onUpdate = fn }
}

// OnEvent is called for every event the tracker applied.
func OnEvent(fn func(events.Envelope)) Option {
	return func(m *Manager) { m.onEvent = fn }
}

// OnStateChange is called on every connection state transition.
func OnStateChange(fn func(ConnState)) Option {
	return func(m *Manager) { m.onState = fn }
}

// WithClock replaces the clock used for polling, backoff and the countdown.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithCoordinator shares an existing countdown instead of creating one.
func WithCoordinator(c *timer.Coordinator) Option {
	return func(m *Manager) { m.timer = c }
}

// Manager owns one subscriber session for one auction.
type Manager struct {
	auctionID uuid.UUID
	cfg       Config
	clock     clockwork.Clock
	transport Transport
	source    SnapshotSource
	tracker   *Tracker
	timer     *timer.Coordinator

	onUpdate func(state.Snapshot)
	onEvent  func(events.Envelope)
	onState  func(ConnState)

	mu     sync.Mutex
	state  ConnState
	active bool
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	pullCh chan struct{}
	pubMu  sync.Mutex
}

func NewManager(auctionID uuid.UUID, cfg Config, transport Transport, source SnapshotSource, opts ...Option) (*Manager, error) {
	m := &Manager{
		auctionID: auctionID,
		cfg:       cfg,
		transport: transport,
		source:    source,
		state:     Disconnected,
		pullCh:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.timer == nil {
		m.timer = timer.NewCoordinator(m.clock)
	}
	if m.cfg.FastPoll <= 0 || m.cfg.SlowPoll <= 0 {
		def := DefaultConfig()
		m.cfg.FastPoll, m.cfg.SlowPoll = def.FastPoll, def.SlowPoll
	}
	if m.cfg.PullTimeout <= 0 {
		m.cfg.PullTimeout = DefaultConfig().PullTimeout
	}

	tracker, err := NewTracker(auctionID, cfg.DedupeSize)
	if err != nil {
		return nil, err
	}
	m.tracker = tracker
	return m, nil
}

func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// View returns the local state of the auction.
func (m *Manager) View() state.Snapshot {
	return m.tracker.View()
}

// Timer exposes the local countdown and its elapsed signals.
func (m *Manager) Timer() *timer.Coordinator {
	return m.timer
}

// Connect starts a session in the background. It fails while another
// session is dialing, connected or backing off.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.active {
		m.mu.Unlock()
		return ErrConnectInFlight
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	m.active = true
	m.err = nil
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.setState(Connecting)
	go m.run(sessionCtx, cancel, done)
	return nil
}

// Close tears the session down and waits for its tasks to exit. Closed is
// terminal.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.state == Closed {
		m.mu.Unlock()
		return nil
	}
	m.state = Closed
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if m.onState != nil {
		m.onState(Closed)
	}
	if cancel != nil {
		cancel()
		<-done
	}
	m.timer.Clear()
	log.Info().Str("auction_id", m.auctionID.String()).Msg("reconcile manager closed")
	return nil
}

// Done is closed when the current session ends, whether by Close, by its
// context or by giving up on the event feed. Before the first Connect it is
// already closed.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return m.done
}

// Err reports why the last session ended. It wraps backoff.ErrExhausted
// when reconnect attempts ran out.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// RequestPull asks for a full-state pull at the next opportunity.
func (m *Manager) RequestPull() {
	select {
	case m.pullCh <- struct{}{}:
	default:
	}
}

func (m *Manager) setState(s ConnState) {
	m.mu.Lock()
	if m.state == s || (m.state == Closed && s != Closed) {
		m.mu.Unlock()
		return
	}
	m.state = s
	m.mu.Unlock()

	log.Debug().Str("auction_id", m.auctionID.String()).Str("state", s.String()).Msg("connection state changed")
	if m.onState != nil {
		m.onState(s)
	}
}

func (m *Manager) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	var (
		wg     sync.WaitGroup
		reason error
	)
	defer func() {
		cancel()
		wg.Wait()
		m.mu.Lock()
		m.active = false
		m.err = reason
		m.mu.Unlock()
		m.setState(Disconnected)
		close(done)
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		m.timer.Run(ctx)
	}()
	// pulls keep the view fresh even while the event feed is down
	go func() {
		defer wg.Done()
		m.pollLoop(ctx)
	}()

	bo := backoff.NewExponential(m.clock, m.cfg.Backoff)
	for {
		stream, err := m.transport.Dial(ctx, m.auctionID)
		if err == nil {
			bo.Reset()
			m.setState(Connected)
			log.Info().Str("auction_id", m.auctionID.String()).Msg("event feed connected")

			err = m.session(ctx, stream)
		}
		if ctx.Err() != nil {
			reason = ctx.Err()
			return
		}

		m.setState(Disconnected)
		log.Warn().
			Str("auction_id", m.auctionID.String()).
			Str("code", string(apperr.As(err).Code)).
			Dur("retry_in", bo.Next()).
			Msg("event feed lost, reconnecting")
		if err := bo.Wait(ctx); err != nil {
			if errors.Is(err, backoff.ErrExhausted) {
				log.Error().
					Str("auction_id", m.auctionID.String()).
					Int("attempts", bo.Attempt()).
					Msg("giving up on event feed")
				reason = fmt.Errorf("event feed for auction %s: %w", m.auctionID, err)
				return
			}
			reason = err
			return
		}
		m.setState(Connecting)
	}
}

// session runs one connected stream until it drops or ctx ends. The stream
// is closed and its reader has exited when session returns.
func (m *Manager) session(ctx context.Context, stream Stream) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.readLoop(ctx, stream)
	}()

	// events may have been missed while disconnected
	m.RequestPull()

	select {
	case <-ctx.Done():
		stream.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		stream.Close()
		return err
	}
}

// pollLoop serves pull requests and the periodic pull for the life of a
// session, connected or not.
func (m *Manager) pollLoop(ctx context.Context) {
	ticker := m.clock.NewTicker(m.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.pullCh:
			m.pull(ctx)
		case <-ticker.Chan():
			m.pull(ctx)
			ticker.Reset(m.pollInterval())
		}
	}
}

func (m *Manager) readLoop(ctx context.Context, stream Stream) error {
	for {
		env, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		m.HandleEvent(env)
	}
}

// HandleEvent applies one pushed event and schedules the follow-up pull.
func (m *Manager) HandleEvent(env events.Envelope) Outcome {
	if env.AuctionID != m.auctionID {
		return Superseded
	}
	outcome, err := m.tracker.ApplyEvent(env)
	if err != nil {
		log.Error().Err(err).Str("event_id", env.EventID.String()).Msg("failed to apply event")
	}
	log.Debug().
		Str("auction_id", m.auctionID.String()).
		Str("event_type", string(env.EventType)).
		Int64("sequence", env.Sequence).
		Str("outcome", outcome.String()).
		Msg("event handled")

	if outcome == Applied {
		m.publish()
		if m.onEvent != nil {
			m.onEvent(env)
		}
	}
	m.RequestPull()
	return outcome
}

func (m *Manager) pull(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.PullTimeout)
	defer cancel()

	snap, err := m.source.Snapshot(ctx, m.auctionID)
	if err != nil {
		e := apperr.As(err)
		log.Warn().
			Str("auction_id", m.auctionID.String()).
			Str("kind", string(e.Kind)).
			Str("code", string(e.Code)).
			Msg("state pull failed")
		return
	}
	if m.tracker.ApplySnapshot(snap) == Applied {
		m.publish()
	}
}

func (m *Manager) publish() {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	view := m.tracker.View()
	m.timer.Reconcile(view.CurrentItemID(), view.TimerSecondsRemaining, view.Status == models.AuctionStatusRunning)
	if m.onUpdate != nil {
		m.onUpdate(view)
	}
}

func (m *Manager) pollInterval() time.Duration {
	if m.tracker.Status() == models.AuctionStatusRunning {
		return m.cfg.FastPoll
	}
	return m.cfg.SlowPoll
}
