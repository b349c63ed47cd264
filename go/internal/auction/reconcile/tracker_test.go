package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

type fixture struct {
	auctionID uuid.UUID
	itemA     uuid.UUID
	itemB     uuid.UUID
	team      uuid.UUID
}

func newFixture() fixture {
	return fixture{auctionID: uuid.New(), itemA: uuid.New(), itemB: uuid.New(), team: uuid.New()}
}

func (f fixture) snapshot(version int64) state.Snapshot {
	team := models.Team{ID: f.team, Name: "Mumbai", Budget: 100000, Spent: 85000, RosterCount: 13, RosterCap: 15}
	return state.Snapshot{
		Version:   version,
		AuctionID: f.auctionID,
		Status:    models.AuctionStatusRunning,
		Increment: models.IncrementRule{Fixed: 500},
		Teams:     []state.TeamView{{Team: team, Remaining: team.Remaining(), MaxBid: team.MaxBid()}},
		Items: []models.Item{
			{ID: f.itemA, Name: "Hardik Pandya", BasePrice: 1000, Status: models.ItemStatusAvailable},
			{ID: f.itemB, Name: "Suryakumar Yadav", BasePrice: 1000, Status: models.ItemStatusAvailable},
		},
	}
}

func (f fixture) event(t *testing.T, seq int64, typ events.Type, payload any) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope(f.auctionID, seq, typ, payload, time.Now())
	require.NoError(t, err)
	return env
}

func secsPtr(v int) *int { return &v }

func TestTrackerIgnoresReplayedBid(t *testing.T) {
	f := newFixture()
	tr, err := NewTracker(f.auctionID, 16)
	require.NoError(t, err)
	require.Equal(t, Applied, tr.ApplySnapshot(f.snapshot(1)))

	advanced := f.event(t, 2, events.TypeItemAdvanced, events.ItemAdvancedPayload{ItemID: f.itemA, ItemName: "Hardik Pandya", BasePrice: 1000, NextBid: 1000, TimerSecondsRemaining: secsPtr(30)})
	out, err := tr.ApplyEvent(advanced)
	require.NoError(t, err)
	require.Equal(t, Applied, out)
	require.Equal(t, f.itemA, tr.TrackedItem())

	bidEvt := f.event(t, 3, events.TypeBidAccepted, events.BidAcceptedPayload{ItemID: f.itemA, TeamID: f.team, Amount: 1000, NextBid: 1500, TimerSecondsRemaining: secsPtr(30)})
	out, err = tr.ApplyEvent(bidEvt)
	require.NoError(t, err)
	require.Equal(t, Applied, out)

	before := tr.View()
	out, err = tr.ApplyEvent(bidEvt)
	require.NoError(t, err)
	require.Equal(t, Duplicate, out)

	after := tr.View()
	require.Equal(t, before.Teams, after.Teams)
	require.Equal(t, int64(1000), after.CurrentBid)
	require.Equal(t, int64(1500), after.NextBid)
	require.Len(t, after.CurrentItem.Bids, 1)
	require.Equal(t, int64(3), tr.Version())
}

func TestTrackerDropsBidForSupersededItem(t *testing.T) {
	f := newFixture()
	tr, err := NewTracker(f.auctionID, 16)
	require.NoError(t, err)
	tr.ApplySnapshot(f.snapshot(1))

	_, err = tr.ApplyEvent(f.event(t, 2, events.TypeItemAdvanced, events.ItemAdvancedPayload{ItemID: f.itemB, NextBid: 1000}))
	require.NoError(t, err)

	out, err := tr.ApplyEvent(f.event(t, 3, events.TypeBidAccepted, events.BidAcceptedPayload{ItemID: f.itemA, TeamID: f.team, Amount: 4000}))
	require.NoError(t, err)
	require.Equal(t, Superseded, out)
	require.Equal(t, int64(0), tr.View().CurrentBid)
	require.Equal(t, int64(2), tr.Version())
}

func TestTrackerDiscardsStaleUpdates(t *testing.T) {
	f := newFixture()
	tr, err := NewTracker(f.auctionID, 16)
	require.NoError(t, err)
	require.Equal(t, Applied, tr.ApplySnapshot(f.snapshot(5)))

	out, err := tr.ApplyEvent(f.event(t, 4, events.TypeAuctionPaused, events.AuctionPausedPayload{}))
	require.NoError(t, err)
	require.Equal(t, Stale, out)
	require.Equal(t, models.AuctionStatusRunning, tr.Status())

	require.Equal(t, Stale, tr.ApplySnapshot(f.snapshot(3)))
	require.Equal(t, Applied, tr.ApplySnapshot(f.snapshot(5)))
	require.Equal(t, int64(5), tr.Version())
}

func TestTrackerDebitsSaleOnce(t *testing.T) {
	f := newFixture()
	tr, err := NewTracker(f.auctionID, 16)
	require.NoError(t, err)
	tr.ApplySnapshot(f.snapshot(1))

	_, err = tr.ApplyEvent(f.event(t, 2, events.TypeItemAdvanced, events.ItemAdvancedPayload{ItemID: f.itemA, NextBid: 1000}))
	require.NoError(t, err)
	sold := events.ItemSoldPayload{ItemID: f.itemA, TeamID: f.team, Price: 5000, SaleSeq: 1, SoldAt: time.Now()}

	out, err := tr.ApplyEvent(f.event(t, 3, events.TypeItemSold, sold))
	require.NoError(t, err)
	require.Equal(t, Applied, out)

	// a redelivery with a new id and sequence must not debit again
	out, err = tr.ApplyEvent(f.event(t, 4, events.TypeItemSold, sold))
	require.NoError(t, err)
	require.Equal(t, Applied, out)

	view := tr.View()
	team, ok := view.Team(f.team)
	require.True(t, ok)
	require.Equal(t, int64(90000), team.Spent)
	require.Equal(t, 14, team.RosterCount)
	require.Equal(t, int64(10000), team.Remaining)
	require.Nil(t, view.CurrentItem)
	require.Equal(t, 1, view.Breakdown.Sold)

	item, ok := view.Item(f.itemA)
	require.True(t, ok)
	require.Equal(t, models.ItemStatusSold, item.Status)
}

func TestTrackerEndClearsCurrent(t *testing.T) {
	f := newFixture()
	tr, err := NewTracker(f.auctionID, 16)
	require.NoError(t, err)
	tr.ApplySnapshot(f.snapshot(1))

	_, err = tr.ApplyEvent(f.event(t, 2, events.TypeItemAdvanced, events.ItemAdvancedPayload{ItemID: f.itemA, NextBid: 1000, TimerSecondsRemaining: secsPtr(30)}))
	require.NoError(t, err)
	_, err = tr.ApplyEvent(f.event(t, 3, events.TypeAuctionEnded, events.AuctionEndedPayload{Breakdown: models.StatusBreakdown{Available: 2, Total: 2}}))
	require.NoError(t, err)

	view := tr.View()
	require.Equal(t, models.AuctionStatusCompleted, view.Status)
	require.Nil(t, view.CurrentItem)
	require.Nil(t, view.TimerSecondsRemaining)
	require.Equal(t, 2, view.Breakdown.Available)
}

func TestTrackerFollowsRestartedAuthority(t *testing.T) {
	f := newFixture()
	tr, err := NewTracker(f.auctionID, 16)
	require.NoError(t, err)

	before, after := uuid.New(), uuid.New()
	old := f.snapshot(50)
	old.Epoch = before
	require.Equal(t, Applied, tr.ApplySnapshot(old))

	restarted := f.snapshot(2)
	restarted.Epoch = after
	restarted.Status = models.AuctionStatusStopped
	require.Equal(t, Applied, tr.ApplySnapshot(restarted))
	view := tr.View()
	require.Equal(t, models.AuctionStatusStopped, view.Status)
	require.Equal(t, int64(2), view.Version)
	require.Equal(t, after, tr.Epoch())

	started := f.event(t, 3, events.TypeAuctionStarted, events.AuctionStartedPayload{})
	started.Epoch = after
	out, err := tr.ApplyEvent(started)
	require.NoError(t, err)
	require.Equal(t, Applied, out)
	require.Equal(t, models.AuctionStatusRunning, tr.Status())

	// late traffic from the replaced authority is ignored
	late := f.event(t, 51, events.TypeAuctionPaused, events.AuctionPausedPayload{})
	late.Epoch = before
	out, err = tr.ApplyEvent(late)
	require.NoError(t, err)
	require.Equal(t, Stale, out)
	require.Equal(t, Stale, tr.ApplySnapshot(old))
	require.Equal(t, int64(3), tr.Version())
}
