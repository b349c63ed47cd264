package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
)

type feed struct {
	t       *testing.T
	clock   *clockwork.FakeClock
	auction uuid.UUID
	seq     int64
}

func (f *feed) env(typ events.Type, payload any) events.Envelope {
	f.t.Helper()
	f.seq++
	env, err := events.NewEnvelope(f.auction, f.seq, typ, payload, f.clock.Now())
	assert.NoError(f.t, err)
	return env
}

func TestPremium(t *testing.T) {
	check.Equal(t, "50.0", Premium(1500, 1000).StringFixed(1))
	check.Equal(t, "33.3", Premium(2000, 1500).StringFixed(1))
	check.Equal(t, "0.0", Premium(1000, 1000).StringFixed(1))
	check.True(t, Premium(1000, 0).IsZero())
}

func TestObserverDetectsBidWar(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := &feed{t: t, clock: clock, auction: uuid.New()}
	var reported []BidWar
	o := NewObserver(Config{Window: 30 * time.Second, MinBids: 4, MinTeams: 2}, clock, func(w BidWar) {
		reported = append(reported, w)
	})

	item, a, b := uuid.New(), uuid.New(), uuid.New()
	_, war := o.Observe(f.env(events.TypeItemAdvanced, events.ItemAdvancedPayload{ItemID: item, BasePrice: 1000, NextBid: 1000}))
	check.False(t, war)

	bidder := []uuid.UUID{a, b, a}
	for i, team := range bidder {
		_, war = o.Observe(f.env(events.TypeBidAccepted, events.BidAcceptedPayload{ItemID: item, TeamID: team, Amount: 1000 + int64(i)*500}))
		check.False(t, war)
		clock.Advance(2 * time.Second)
	}

	w, war := o.Observe(f.env(events.TypeBidAccepted, events.BidAcceptedPayload{ItemID: item, TeamID: b, Amount: 2500}))
	assert.True(t, war)
	check.Equal(t, 4, w.Bids)
	check.Equal(t, 2, len(w.Teams))
	check.Equal(t, "150.0", w.Premium.StringFixed(1))
	check.Equal(t, 1, len(reported))
}

func TestObserverWindowExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := &feed{t: t, clock: clock, auction: uuid.New()}
	o := NewObserver(Config{Window: 10 * time.Second, MinBids: 3, MinTeams: 2}, clock, nil)

	item, a, b := uuid.New(), uuid.New(), uuid.New()
	o.Observe(f.env(events.TypeItemAdvanced, events.ItemAdvancedPayload{ItemID: item, BasePrice: 500}))
	o.Observe(f.env(events.TypeBidAccepted, events.BidAcceptedPayload{ItemID: item, TeamID: a, Amount: 500}))
	o.Observe(f.env(events.TypeBidAccepted, events.BidAcceptedPayload{ItemID: item, TeamID: b, Amount: 600}))

	// both teams went quiet for longer than the window
	clock.Advance(20 * time.Second)
	_, war := o.Observe(f.env(events.TypeBidAccepted, events.BidAcceptedPayload{ItemID: item, TeamID: a, Amount: 700}))
	check.False(t, war)
}

func TestObserverResetsOnNewItem(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := &feed{t: t, clock: clock, auction: uuid.New()}
	o := NewObserver(Config{Window: 30 * time.Second, MinBids: 2, MinTeams: 2}, clock, nil)

	first, second, a, b := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	o.Observe(f.env(events.TypeItemAdvanced, events.ItemAdvancedPayload{ItemID: first, BasePrice: 500}))
	o.Observe(f.env(events.TypeBidAccepted, events.BidAcceptedPayload{ItemID: first, TeamID: a, Amount: 500}))
	o.Observe(f.env(events.TypeItemSold, events.ItemSoldPayload{ItemID: first, TeamID: a, Price: 500, SaleSeq: 1}))

	o.Observe(f.env(events.TypeItemAdvanced, events.ItemAdvancedPayload{ItemID: second, BasePrice: 800}))
	_, war := o.Observe(f.env(events.TypeBidAccepted, events.BidAcceptedPayload{ItemID: second, TeamID: b, Amount: 800}))
	check.False(t, war)

	// bids for an item that is no longer up are ignored
	_, war = o.Observe(f.env(events.TypeBidAccepted, events.BidAcceptedPayload{ItemID: first, TeamID: a, Amount: 900}))
	check.False(t, war)

	_, war = o.Observe(f.env(events.TypeBidAccepted, events.BidAcceptedPayload{ItemID: second, TeamID: a, Amount: 900}))
	check.True(t, war)
}
