package models

import (
	"time"

	"github.com/google/uuid"
)

// TimerSettings configures the per-item countdown.
type TimerSettings struct {
	DurationSec int  `json:"duration_sec" yaml:"duration_sec"`
	Enabled     bool `json:"enabled" yaml:"enabled"`
}

// Auction is the authoritative record of one live auction.
type Auction struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Status        AuctionStatus `json:"status"`
	CurrentItemID *uuid.UUID    `json:"current_item_id,omitempty"`
	CurrentBid    int64         `json:"current_bid"`
	LeadingTeamID *uuid.UUID    `json:"leading_team_id,omitempty"`
	Timer         TimerSettings `json:"timer"`
	Increment     IncrementRule `json:"increment"`

	// Countdown bookkeeping. TimerDeadline is set while Running with an
	// active item; PausedRemainingSec holds the frozen remainder while Paused.
	TimerDeadline      *time.Time `json:"timer_deadline,omitempty"`
	PausedRemainingSec *int       `json:"paused_remaining_sec,omitempty"`

	// SaleCounter numbers every sale; LastSaleSeq is the recallable sale, or 0.
	SaleCounter int64 `json:"sale_counter"`
	LastSaleSeq int64 `json:"last_sale_seq"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// HasActiveItem reports whether an item is currently under the hammer.
func (a *Auction) HasActiveItem() bool {
	return a.CurrentItemID != nil
}

// IsLeader reports whether teamID holds the current highest bid.
func (a *Auction) IsLeader(teamID uuid.UUID) bool {
	return a.LeadingTeamID != nil && *a.LeadingTeamID == teamID
}

// ClearCurrent drops the active item, bid, leader and countdown.
func (a *Auction) ClearCurrent() {
	a.CurrentItemID = nil
	a.CurrentBid = 0
	a.LeadingTeamID = nil
	a.TimerDeadline = nil
	a.PausedRemainingSec = nil
}

func (a Auction) Clone() Auction {
	out := a
	out.CurrentItemID = cloneUUID(a.CurrentItemID)
	out.LeadingTeamID = cloneUUID(a.LeadingTeamID)
	out.TimerDeadline = cloneTime(a.TimerDeadline)
	out.StartedAt = cloneTime(a.StartedAt)
	out.EndedAt = cloneTime(a.EndedAt)
	if a.PausedRemainingSec != nil {
		v := *a.PausedRemainingSec
		out.PausedRemainingSec = &v
	}
	out.Increment = a.Increment.Clone()
	return out
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
