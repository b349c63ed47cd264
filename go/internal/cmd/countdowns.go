package main

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/auction/timer"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

// countdowns keeps one timer coordinator per auction in step with committed
// state and logs when an item's countdown runs out. It sits on the relay as
// a publisher so it sees events in commit order.
type countdowns struct {
	store *state.Store
	clock clockwork.Clock

	mu      sync.Mutex
	ctx     context.Context
	stopped bool
	byID    map[uuid.UUID]*timer.Coordinator
	running sync.WaitGroup
}

func newCountdowns(store *state.Store, clock clockwork.Clock) *countdowns {
	return &countdowns{store: store, clock: clock, byID: make(map[uuid.UUID]*timer.Coordinator)}
}

// Start binds the coordinators to ctx and blocks until it is cancelled.
func (c *countdowns) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	for id, co := range c.byID {
		c.spawn(ctx, id, co)
	}
	c.mu.Unlock()

	<-ctx.Done()
	// no spawn may Add once Wait has begun
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.running.Wait()
}

func (c *countdowns) Publish(ctx context.Context, env events.Envelope) error {
	snap, err := c.store.Snapshot(env.AuctionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	co, ok := c.byID[env.AuctionID]
	if !ok {
		co = timer.NewCoordinator(c.clock)
		c.byID[env.AuctionID] = co
		if c.ctx != nil && !c.stopped {
			c.spawn(c.ctx, env.AuctionID, co)
		}
	}
	c.mu.Unlock()

	co.Reconcile(snap.CurrentItemID(), snap.TimerSecondsRemaining, snap.Status == models.AuctionStatusRunning)
	return nil
}

func (c *countdowns) spawn(ctx context.Context, auctionID uuid.UUID, co *timer.Coordinator) {
	c.running.Add(2)
	go func() {
		defer c.running.Done()
		co.Run(ctx)
	}()
	go func() {
		defer c.running.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-co.Elapsed():
				log.Info().
					Str("auction_id", auctionID.String()).
					Str("item_id", e.ItemID.String()).
					Msg("countdown elapsed, awaiting operator decision")
			}
		}
	}()
}
