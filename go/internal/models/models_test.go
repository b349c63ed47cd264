package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestParseAuctionStatus(t *testing.T) {
	cases := map[string]AuctionStatus{
		"notStarted":  AuctionStatusStopped,
		"NOT_STARTED": AuctionStatusStopped,
		"stopped":     AuctionStatusStopped,
		"in_progress": AuctionStatusRunning,
		"Running":     AuctionStatusRunning,
		"PAUSED":      AuctionStatusPaused,
		"Completed":   AuctionStatusCompleted,
		" ended ":     AuctionStatusCompleted,
	}
	for in, want := range cases {
		got, err := ParseAuctionStatus(in)
		check.NoError(t, err)
		check.Equal(t, want, got)
	}

	_, err := ParseAuctionStatus("bogus")
	check.Error(t, err)
}

func TestParseItemStatus(t *testing.T) {
	cases := map[string]ItemStatus{
		"available":  ItemStatusAvailable,
		"inAuction":  ItemStatusInAuction,
		"IN_AUCTION": ItemStatusInAuction,
		"Sold":       ItemStatusSold,
		"unsold":     ItemStatusUnsold,
		"pending":    ItemStatusPending,
		"Withdrawn":  ItemStatusWithdrawn,
	}
	for in, want := range cases {
		got, err := ParseItemStatus(in)
		check.NoError(t, err)
		check.Equal(t, want, got)
		check.True(t, got.Valid())
	}
	_, err := ParseItemStatus("")
	check.Error(t, err)
}

func TestStatusUnmarshalNormalizes(t *testing.T) {
	var payload struct {
		Status AuctionStatus `json:"status"`
		Item   ItemStatus    `json:"item"`
	}
	err := json.Unmarshal([]byte(`{"status":"notStarted","item":"inAuction"}`), &payload)
	check.NoError(t, err)
	check.Equal(t, AuctionStatusStopped, payload.Status)
	check.Equal(t, ItemStatusInAuction, payload.Item)

	err = json.Unmarshal([]byte(`{"status":"whatever"}`), &payload)
	check.Error(t, err)
}

func TestTeamLedger(t *testing.T) {
	team := Team{Budget: 100000, Spent: 85000, RosterCount: 14, RosterCap: 15}
	check.Equal(t, int64(15000), team.Remaining())
	check.Equal(t, int64(15000), team.MaxBid())
	check.False(t, team.RosterFull())

	team.RosterCount = 15
	check.Equal(t, int64(15000), team.Remaining())
	check.Equal(t, int64(0), team.MaxBid())
	check.True(t, team.RosterFull())

	overspent := Team{Budget: 100, Spent: 250, RosterCap: 3}
	check.Equal(t, int64(0), overspent.Remaining())
	check.Equal(t, int64(0), overspent.MaxBid())
}

func TestIncrementRuleValidate(t *testing.T) {
	good := IncrementRule{Fixed: 50, Slabs: []IncrementSlab{{0, 2000, 100}, {2001, 10000, 500}}}
	check.NoError(t, good.Validate())

	inverted := IncrementRule{Slabs: []IncrementSlab{{500, 100, 10}}}
	check.True(t, errors.Is(inverted.Validate(), ErrSlabInverted))

	overlap := IncrementRule{Slabs: []IncrementSlab{{0, 2000, 100}, {2000, 3000, 200}}}
	check.True(t, errors.Is(overlap.Validate(), ErrSlabOverlap))

	unsorted := IncrementRule{Slabs: []IncrementSlab{{5000, 6000, 100}, {0, 100, 10}}}
	check.True(t, errors.Is(unsorted.Validate(), ErrSlabUnsorted))

	negative := IncrementRule{Fixed: -1}
	check.True(t, errors.Is(negative.Validate(), ErrNegativeIncrement))
}

func TestCountByStatus(t *testing.T) {
	var items []Item
	for i := 0; i < 5; i++ {
		items = append(items, Item{Status: ItemStatusSold})
	}
	for i := 0; i < 3; i++ {
		items = append(items, Item{Status: ItemStatusPending})
	}
	b := CountByStatus(items)
	check.Equal(t, StatusBreakdown{Sold: 5, Pending: 3, Total: 8}, b)
	check.Equal(t, 3, b.Of(ItemStatusPending))
	check.Equal(t, 0, b.Of(ItemStatusAvailable))
}

func TestCloneIsDeep(t *testing.T) {
	item := Item{Bids: []BidRecord{{Amount: 10}}}
	cp := item.Clone()
	cp.Bids[0].Amount = 99
	check.Equal(t, int64(10), item.Bids[0].Amount)

	a := Auction{Increment: IncrementRule{Slabs: []IncrementSlab{{0, 10, 1}}}}
	ac := a.Clone()
	ac.Increment.Slabs[0].Increment = 7
	check.Equal(t, int64(1), a.Increment.Slabs[0].Increment)
}
