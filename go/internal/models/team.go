package models

import (
	"github.com/google/uuid"
)

// Team is a bidder in an auction together with its purse and roster ledger.
type Team struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Budget      int64     `json:"budget"`
	Spent       int64     `json:"spent"`
	RosterCount int       `json:"roster_count"`
	RosterCap   int       `json:"roster_cap"`
}

// Remaining is budget minus spent, clamped at zero.
func (t Team) Remaining() int64 {
	if r := t.Budget - t.Spent; r > 0 {
		return r
	}
	return 0
}

// RosterFull reports whether the team has reached its roster cap.
func (t Team) RosterFull() bool {
	return t.RosterCount >= t.RosterCap
}

// MaxBid is the largest amount the team may commit to a single item.
// A team at roster cap can never bid regardless of balance.
func (t Team) MaxBid() int64 {
	if t.RosterFull() {
		return 0
	}
	return t.Remaining()
}
