package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auctionroom/go/internal/auction/dispatcher"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

func newRunningAuction(t *testing.T, clock clockwork.Clock) (*state.Store, uuid.UUID) {
	t.Helper()
	store := state.NewStore(clock)
	auctionID := uuid.New()
	_, err := store.Create(&state.AuctionState{
		Auction: models.Auction{
			ID:        auctionID,
			Name:      "countdowns",
			Status:    models.AuctionStatusStopped,
			Timer:     models.TimerSettings{DurationSec: 20, Enabled: true},
			Increment: models.IncrementRule{Fixed: 100},
		},
		Items: []models.Item{{ID: uuid.New(), Name: "KL Rahul", BasePrice: 500, Status: models.ItemStatusAvailable}},
		Teams: []models.Team{{ID: uuid.New(), Name: "Lucknow", Budget: 10000, RosterCap: 5}},
	})
	require.NoError(t, err)

	d := dispatcher.New(store, nil, clock)
	ctx := context.Background()
	_, err = d.Start(ctx, dispatcher.StartRequest{AuctionID: auctionID})
	require.NoError(t, err)
	_, err = d.AdvanceToNextItem(ctx, dispatcher.AuctionRequest{AuctionID: auctionID})
	require.NoError(t, err)
	return store, auctionID
}

func TestCountdownsFollowCommittedState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store, auctionID := newRunningAuction(t, clock)
	c := newCountdowns(store, clock)

	env := events.Envelope{EventID: uuid.New(), AuctionID: auctionID, EventType: events.TypeItemAdvanced}
	require.NoError(t, c.Publish(context.Background(), env))

	c.mu.Lock()
	co := c.byID[auctionID]
	c.mu.Unlock()
	require.NotNil(t, co)
	_, secs, ok := co.Remaining()
	require.True(t, ok)
	require.Equal(t, 20, secs)

	err := c.Publish(context.Background(), events.Envelope{EventID: uuid.New(), AuctionID: uuid.New()})
	require.ErrorIs(t, err, state.ErrAuctionNotFound)
}

func TestCountdownsStopWhilePublishing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	for i := 0; i < 50; i++ {
		store, _ := newRunningAuction(t, clock)
		c := newCountdowns(store, clock)

		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		go func() {
			c.Start(ctx)
			close(stopped)
		}()

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				// each publish registers another auction and may spawn its countdown
				id := uuid.New()
				if _, err := store.Create(&state.AuctionState{Auction: models.Auction{ID: id, Name: "extra", Status: models.AuctionStatusStopped}}); err != nil {
					t.Error(err)
					return
				}
				if err := c.Publish(context.Background(), events.Envelope{EventID: uuid.New(), AuctionID: id}); err != nil {
					t.Error(err)
				}
			}()
		}
		cancel()
		wg.Wait()

		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			t.Fatal("countdowns did not stop")
		}
	}
}
