package state

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/auctionroom/go/internal/auction/bid"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

// TeamView is a team ledger with its derived limits.
type TeamView struct {
	models.Team
	Remaining int64 `json:"remaining"`
	MaxBid    int64 `json:"max_bid"`
}

// Snapshot is an immutable, versioned copy of an auction's public state.
type Snapshot struct {
	Epoch                 uuid.UUID              `json:"epoch"`
	Version               int64                  `json:"version"`
	AuctionID             uuid.UUID              `json:"auction_id"`
	Name                  string                 `json:"name"`
	Status                models.AuctionStatus   `json:"status"`
	CurrentItem           *models.Item           `json:"current_item,omitempty"`
	CurrentBid            int64                  `json:"current_bid"`
	LeadingTeamID         *uuid.UUID             `json:"leading_team_id,omitempty"`
	NextBid               int64                  `json:"next_bid"`
	TimerSecondsRemaining *int                   `json:"timer_seconds_remaining,omitempty"`
	Timer                 models.TimerSettings   `json:"timer"`
	Increment             models.IncrementRule   `json:"increment"`
	Teams                 []TeamView             `json:"teams"`
	Items                 []models.Item          `json:"items"`
	Breakdown             models.StatusBreakdown `json:"breakdown"`
	LastSaleSeq           int64                  `json:"last_sale_seq"`
	TakenAt               time.Time              `json:"taken_at"`
}

// Team returns the view for id, if present.
func (s *Snapshot) Team(id uuid.UUID) (TeamView, bool) {
	for _, t := range s.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return TeamView{}, false
}

// Item returns the item with id, if present.
func (s *Snapshot) Item(id uuid.UUID) (models.Item, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return models.Item{}, false
}

// CurrentItemID is the id of the active item or uuid.Nil.
func (s *Snapshot) CurrentItemID() uuid.UUID {
	if s.CurrentItem == nil {
		return uuid.Nil
	}
	return s.CurrentItem.ID
}

// TimerRemaining returns the countdown seconds for an auction at now. It is
// nil when the timer is disabled or no item is active.
func TimerRemaining(a *models.Auction, now time.Time) *int {
	if !a.Timer.Enabled || a.CurrentItemID == nil {
		return nil
	}
	switch {
	case a.Status == models.AuctionStatusPaused && a.PausedRemainingSec != nil:
		v := *a.PausedRemainingSec
		return &v
	case a.TimerDeadline != nil:
		v := int(math.Ceil(a.TimerDeadline.Sub(now).Seconds()))
		if v < 0 {
			v = 0
		}
		return &v
	}
	return nil
}

func buildSnapshot(st *AuctionState, version int64, now time.Time) Snapshot {
	a := st.Auction
	snap := Snapshot{
		Version:               version,
		AuctionID:             a.ID,
		Name:                  a.Name,
		Status:                a.Status,
		CurrentBid:            a.CurrentBid,
		LeadingTeamID:         cloneID(a.LeadingTeamID),
		TimerSecondsRemaining: TimerRemaining(&a, now),
		Timer:                 a.Timer,
		Increment:             a.Increment.Clone(),
		Teams:                 make([]TeamView, len(st.Teams)),
		Items:                 make([]models.Item, len(st.Items)),
		Breakdown:             st.Breakdown(),
		LastSaleSeq:           a.LastSaleSeq,
		TakenAt:               now,
	}
	for i, t := range st.Teams {
		snap.Teams[i] = TeamView{Team: t, Remaining: t.Remaining(), MaxBid: t.MaxBid()}
	}
	for i, it := range st.Items {
		snap.Items[i] = it.Clone()
	}
	if cur := st.CurrentItem(); cur != nil {
		c := cur.Clone()
		snap.CurrentItem = &c
		snap.NextBid = bid.NextBid(a.CurrentBid, cur.BasePrice, a.Increment)
	}
	return snap
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
