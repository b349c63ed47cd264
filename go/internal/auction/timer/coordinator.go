// Package timer runs the local per-item countdown. The countdown is always
// replaced by the latest authoritative seconds-remaining value and never
// finalizes an item itself; it only signals that time ran out.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Elapsed is raised once per countdown when it reaches zero.
type Elapsed struct {
	ItemID uuid.UUID
}

type Coordinator struct {
	clock clockwork.Clock

	mu        sync.Mutex
	itemID    uuid.UUID
	tracking  bool
	remaining int
	running   bool
	fired     bool

	elapsed chan Elapsed
}

func NewCoordinator(clock clockwork.Clock) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Coordinator{
		clock:   clock,
		elapsed: make(chan Elapsed, 16),
	}
}

// Elapsed delivers time-elapsed signals.
func (c *Coordinator) Elapsed() <-chan Elapsed {
	return c.elapsed
}

// Reconcile replaces the local countdown with an authoritative value. A nil
// secs means the item has no countdown.
func (c *Coordinator) Reconcile(itemID uuid.UUID, secs *int, running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if itemID == uuid.Nil || secs == nil {
		c.clearLocked()
		return
	}
	if !c.tracking || c.itemID != itemID {
		c.fired = false
	}
	c.itemID = itemID
	c.tracking = true
	c.running = running

	v := *secs
	if v < 0 {
		v = 0
	}
	if v > 0 {
		c.fired = false
	}
	c.remaining = v
	if c.remaining == 0 && c.running {
		c.fireLocked()
	}
}

// SetRunning pauses or resumes the countdown without changing its value.
func (c *Coordinator) SetRunning(running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = running
}

func (c *Coordinator) Pause()  { c.SetRunning(false) }
func (c *Coordinator) Resume() { c.SetRunning(true) }

// Clear stops tracking any item.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Coordinator) clearLocked() {
	c.itemID = uuid.Nil
	c.tracking = false
	c.remaining = 0
	c.fired = false
}

// Remaining returns the tracked item and its local seconds remaining.
func (c *Coordinator) Remaining() (uuid.UUID, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemID, c.remaining, c.tracking
}

// Tick advances the countdown by one second.
func (c *Coordinator) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tracking || !c.running || c.remaining <= 0 {
		return
	}
	c.remaining--
	if c.remaining == 0 {
		c.fireLocked()
	}
}

func (c *Coordinator) fireLocked() {
	if c.fired {
		return
	}
	c.fired = true
	select {
	case c.elapsed <- Elapsed{ItemID: c.itemID}:
		log.Debug().Str("item_id", c.itemID.String()).Msg("countdown elapsed")
	default:
		log.Warn().Str("item_id", c.itemID.String()).Msg("elapsed channel full, dropping signal")
	}
}

// Run ticks once per second until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.Tick()
		}
	}
}
