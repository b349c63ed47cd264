// Package outbox relays committed auction events, in commit order, to the
// configured publishers and archive.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
)

type Config struct {
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		RetryDelay: 200 * time.Millisecond,
	}
}

// Relay is an unbounded in-order queue drained by a single worker. Enqueue
// never blocks, so it is safe to call from inside the store's lock.
type Relay struct {
	publishers []Publisher
	archiver   Archiver
	config     Config
	clock      clockwork.Clock

	mu      sync.Mutex
	queue   []Record
	wake    chan struct{}
	running bool
	wg      sync.WaitGroup

	published atomic.Uint64
	failed    atomic.Uint64
	lastSent  atomic.Int64
}

func NewRelay(cfg Config, clock clockwork.Clock, archiver Archiver, publishers ...Publisher) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		publishers: publishers,
		archiver:   archiver,
		config:     cfg,
		clock:      clock,
		wake:       make(chan struct{}, 1),
	}
}

// Enqueue appends a committed record.
func (r *Relay) Enqueue(env events.Envelope, snap state.Snapshot) {
	r.mu.Lock()
	r.queue = append(r.queue, Record{Envelope: env, Snapshot: snap})
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("outbox relay already running")
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)

	log.Info().
		Int("publishers", len(r.publishers)).
		Bool("archive", r.archiver != nil).
		Msg("outbox relay started")
	return nil
}

// Wait blocks until the worker exits after ctx is cancelled.
func (r *Relay) Wait() {
	r.wg.Wait()
}

func (r *Relay) run(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// flush what is already committed with a short grace period
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			r.drain(flushCtx)
			cancel()
			log.Info().Msg("outbox relay stopped")
			return
		case <-r.wake:
			r.drain(ctx)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.mu.Unlock()
			return
		}
		batch := r.queue
		r.queue = nil
		r.mu.Unlock()

		for _, rec := range batch {
			r.process(ctx, rec)
		}
	}
}

func (r *Relay) process(ctx context.Context, rec Record) {
	if r.archiver != nil {
		if err := r.archiver.Archive(ctx, rec); err != nil {
			log.Error().
				Err(err).
				Str("event_id", rec.Envelope.EventID.String()).
				Msg("failed to archive event")
		}
	}

	ok := true
	for _, p := range r.publishers {
		if err := r.publishWithRetry(ctx, p, rec.Envelope); err != nil {
			ok = false
			log.Error().
				Err(err).
				Str("event_id", rec.Envelope.EventID.String()).
				Str("event_type", string(rec.Envelope.EventType)).
				Msg("failed to publish event")
		}
	}
	if ok {
		r.published.Add(1)
		r.lastSent.Store(r.clock.Now().UnixNano())
	} else {
		r.failed.Add(1)
	}
}

func (r *Relay) publishWithRetry(ctx context.Context, p Publisher, env events.Envelope) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(r.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := p.Publish(ctx, env); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", env.EventID.String()).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}

// Stats is a point-in-time view of relay progress.
type Stats struct {
	Published uint64     `json:"published"`
	Failed    uint64     `json:"failed"`
	Pending   int        `json:"pending"`
	LastSent  *time.Time `json:"last_sent,omitempty"`
}

func (r *Relay) Stats() Stats {
	r.mu.Lock()
	pending := len(r.queue)
	r.mu.Unlock()

	s := Stats{
		Published: r.published.Load(),
		Failed:    r.failed.Load(),
		Pending:   pending,
	}
	if ns := r.lastSent.Load(); ns > 0 {
		t := time.Unix(0, ns).UTC()
		s.LastSent = &t
	}
	return s
}
