package dispatcher

import (
	"context"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/bid"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

var reasonCodes = map[bid.Reason]apperr.Code{
	bid.ReasonAuctionNotRunning: apperr.CodeAuctionNotRunning,
	bid.ReasonNoActiveItem:      apperr.CodeNoActiveItem,
	bid.ReasonAlreadyLeading:    apperr.CodeAlreadyLeading,
	bid.ReasonRosterFull:        apperr.CodeRosterFull,
	bid.ReasonInsufficientFunds: apperr.CodeInsufficientBudget,
}

// PlaceBid records a bid for the active item. Without an explicit amount the
// team bids the next minimum.
func (d *Dispatcher) PlaceBid(ctx context.Context, req PlaceBidRequest) (state.Snapshot, error) {
	return d.apply(ctx, "place_bid", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		a := &st.Auction
		if err := requireRunning(a); err != nil {
			return pendingEvent{}, err
		}
		cur, err := requireActiveItem(st)
		if err != nil {
			return pendingEvent{}, err
		}
		team := st.Team(req.TeamID)
		if team == nil {
			return pendingEvent{}, apperr.Precondition(apperr.CodeTeamNotFound, "team %s not found", req.TeamID)
		}

		next := bid.NextBid(a.CurrentBid, cur.BasePrice, a.Increment)
		amount := next
		if req.Amount != nil {
			amount = *req.Amount
		}
		if amount < next || amount <= a.CurrentBid {
			return pendingEvent{}, apperr.Precondition(apperr.CodeBidTooLow, "bid %d is below the minimum %d", amount, next)
		}

		elig := bid.CheckEligibility(bid.EligibilityInput{
			Status:        a.Status,
			ItemInAuction: true,
			Team:          *team,
			Amount:        amount,
			IsLeader:      a.IsLeader(team.ID),
		})
		if !elig.Eligible {
			return pendingEvent{}, apperr.Precondition(reasonCodes[elig.Reason], "%s cannot bid %d: %s", team.Name, amount, elig.Reason)
		}

		cur.Bids = append(cur.Bids, models.BidRecord{TeamID: team.ID, Amount: amount, PlacedAt: now})
		a.CurrentBid = amount
		leader := team.ID
		a.LeadingTeamID = &leader
		armTimer(a, now)

		return pendingEvent{events.TypeBidAccepted, events.BidAcceptedPayload{
			ItemID:                cur.ID,
			TeamID:                team.ID,
			Amount:                amount,
			NextBid:               bid.NextBid(amount, cur.BasePrice, a.Increment),
			PlacedAt:              now,
			TimerSecondsRemaining: state.TimerRemaining(a, now),
		}}, nil
	})
}

// UndoLastBid removes the most recent bid and restores the previous leader.
func (d *Dispatcher) UndoLastBid(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.apply(ctx, "undo_last_bid", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		a := &st.Auction
		if err := requireLive(a); err != nil {
			return pendingEvent{}, err
		}
		cur, err := requireActiveItem(st)
		if err != nil {
			return pendingEvent{}, err
		}
		if len(cur.Bids) == 0 {
			return pendingEvent{}, apperr.Precondition(apperr.CodeNoBids, "no bids to undo")
		}

		cur.Bids = cur.Bids[:len(cur.Bids)-1]
		if prev, ok := cur.LastBid(); ok {
			a.CurrentBid = prev.Amount
			leader := prev.TeamID
			a.LeadingTeamID = &leader
		} else {
			a.CurrentBid = 0
			a.LeadingTeamID = nil
		}
		id := cur.ID
		return pendingEvent{events.TypeStateChanged, events.StateChangedPayload{Reason: events.ReasonBidUndone, ItemID: &id}}, nil
	})
}
