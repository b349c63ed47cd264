// Package bid holds the pure bidding rules: increment lookup, next-bid
// calculation and team eligibility. Nothing here keeps state.
package bid

import (
	"math"

	"github.com/mcdev12/auctionroom/go/internal/models"
)

// DefaultIncrement applies when neither a slab nor a fixed increment matches.
const DefaultIncrement int64 = 100

// IncrementFor returns the increment to add on top of amount. The slab
// containing amount wins, then rule.Fixed, then DefaultIncrement. The result
// is always positive.
func IncrementFor(amount int64, rule models.IncrementRule) int64 {
	for _, s := range rule.Slabs {
		if amount < s.From {
			// slabs are ascending; nothing further can contain amount
			break
		}
		if amount <= s.To {
			if s.Increment > 0 {
				return s.Increment
			}
			break
		}
	}
	if rule.Fixed > 0 {
		return rule.Fixed
	}
	return DefaultIncrement
}

// NextBid is the minimum acceptable bid. The opening bid equals the base
// price; every later bid adds the increment for the current amount. A
// non-positive base price opens at the increment for zero. The result
// saturates at math.MaxInt64; callers must still require a bid above
// currentBid.
func NextBid(currentBid, basePrice int64, rule models.IncrementRule) int64 {
	if currentBid <= 0 {
		if basePrice > 0 {
			return basePrice
		}
		return IncrementFor(0, rule)
	}
	inc := IncrementFor(currentBid, rule)
	if currentBid > math.MaxInt64-inc {
		return math.MaxInt64
	}
	return currentBid + inc
}

// Reason explains why a team may not place a bid.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonAuctionNotRunning Reason = "AUCTION_NOT_RUNNING"
	ReasonNoActiveItem      Reason = "NO_ACTIVE_ITEM"
	ReasonAlreadyLeading    Reason = "ALREADY_LEADING"
	ReasonRosterFull        Reason = "ROSTER_FULL"
	ReasonInsufficientFunds Reason = "INSUFFICIENT_BUDGET"
)

// EligibilityInput is everything CheckEligibility looks at.
type EligibilityInput struct {
	Status        models.AuctionStatus
	ItemInAuction bool
	Team          models.Team
	Amount        int64
	IsLeader      bool
}

// Eligibility is the outcome of CheckEligibility.
type Eligibility struct {
	Eligible bool
	Reason   Reason
}

// CheckEligibility decides whether a team may bid Amount right now.
func CheckEligibility(in EligibilityInput) Eligibility {
	switch {
	case in.Status != models.AuctionStatusRunning:
		return deny(ReasonAuctionNotRunning)
	case !in.ItemInAuction:
		return deny(ReasonNoActiveItem)
	case in.IsLeader:
		return deny(ReasonAlreadyLeading)
	case in.Team.RosterFull():
		return deny(ReasonRosterFull)
	case in.Team.Remaining() < in.Amount, in.Team.MaxBid() < in.Amount:
		return deny(ReasonInsufficientFunds)
	}
	return Eligibility{Eligible: true}
}

func deny(r Reason) Eligibility {
	return Eligibility{Reason: r}
}
