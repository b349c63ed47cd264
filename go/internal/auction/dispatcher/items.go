package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/bid"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

// AdvanceToNextItem puts the first available item in queue order up for bidding.
func (d *Dispatcher) AdvanceToNextItem(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.apply(ctx, "advance", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		if err := requireRunning(&st.Auction); err != nil {
			return pendingEvent{}, err
		}
		if err := requireIdle(st); err != nil {
			return pendingEvent{}, err
		}
		next := st.FirstWithStatus(models.ItemStatusAvailable)
		if next == nil {
			return pendingEvent{}, apperr.Precondition(apperr.CodeNoAvailablePlayers, "no available players left in the queue").
				WithBreakdown(st.Breakdown())
		}
		return openItem(st, next, now, false), nil
	})
}

// CallItem puts a specific available item up for bidding out of queue order.
func (d *Dispatcher) CallItem(ctx context.Context, req CallItemRequest) (state.Snapshot, error) {
	return d.apply(ctx, "call_item", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		if err := requireRunning(&st.Auction); err != nil {
			return pendingEvent{}, err
		}
		if err := requireIdle(st); err != nil {
			return pendingEvent{}, err
		}
		it, _ := st.Item(req.ItemID)
		if it == nil {
			return pendingEvent{}, apperr.Precondition(apperr.CodePlayerNotFound, "player %s not found", req.ItemID)
		}
		if it.Status != models.ItemStatusAvailable {
			return pendingEvent{}, apperr.Precondition(apperr.CodePlayerNotAvailable, "%s is %s", it.Name, it.Status)
		}
		return openItem(st, it, now, true), nil
	})
}

func requireIdle(st *state.AuctionState) error {
	if st.Auction.HasActiveItem() {
		return apperr.Precondition(apperr.CodeCurrentItemActive, "finalize the current player first")
	}
	return nil
}

func openItem(st *state.AuctionState, it *models.Item, now time.Time, called bool) pendingEvent {
	a := &st.Auction
	it.Status = models.ItemStatusInAuction
	it.Bids = nil
	id := it.ID
	a.CurrentItemID = &id
	a.CurrentBid = 0
	a.LeadingTeamID = nil
	armTimer(a, now)

	return pendingEvent{events.TypeItemAdvanced, events.ItemAdvancedPayload{
		ItemID:                it.ID,
		ItemName:              it.Name,
		BasePrice:             it.BasePrice,
		NextBid:               bid.NextBid(0, it.BasePrice, a.Increment),
		Called:                called,
		TimerSecondsRemaining: state.TimerRemaining(a, now),
	}}
}

// MarkSold sells the active item to the leading team.
func (d *Dispatcher) MarkSold(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.apply(ctx, "mark_sold", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		a := &st.Auction
		if err := requireLive(a); err != nil {
			return pendingEvent{}, err
		}
		cur, err := requireActiveItem(st)
		if err != nil {
			return pendingEvent{}, err
		}
		if a.LeadingTeamID == nil || a.CurrentBid <= 0 {
			return pendingEvent{}, apperr.Precondition(apperr.CodeNoBids, "%s has no bids", cur.Name)
		}
		team := st.Team(*a.LeadingTeamID)
		if team == nil {
			return pendingEvent{}, apperr.Precondition(apperr.CodeTeamNotFound, "leading team %s not found", *a.LeadingTeamID)
		}
		// the ledger may have moved since the bid; maxBid is authoritative
		if team.MaxBid() < a.CurrentBid {
			if team.RosterFull() {
				return pendingEvent{}, apperr.Precondition(apperr.CodeRosterFull, "%s roster is full", team.Name)
			}
			return pendingEvent{}, apperr.Precondition(apperr.CodeInsufficientBudget, "%s cannot cover %d", team.Name, a.CurrentBid)
		}

		price := a.CurrentBid
		team.Spent += price
		team.RosterCount++

		a.SaleCounter++
		soldTo := team.ID
		soldAt := now
		cur.Status = models.ItemStatusSold
		cur.SoldPrice = price
		cur.SoldTo = &soldTo
		cur.SoldAt = &soldAt
		cur.SaleSeq = a.SaleCounter
		a.LastSaleSeq = a.SaleCounter
		a.ClearCurrent()

		return pendingEvent{events.TypeItemSold, events.ItemSoldPayload{
			ItemID:  cur.ID,
			TeamID:  team.ID,
			Price:   price,
			SaleSeq: cur.SaleSeq,
			SoldAt:  now,
		}}, nil
	})
}

// MarkUnsold closes the active item without a sale.
func (d *Dispatcher) MarkUnsold(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.finalizeCurrent(ctx, "mark_unsold", req, models.ItemStatusUnsold, events.ReasonItemUnsold)
}

// MoveToPending parks the active item for a later round.
func (d *Dispatcher) MoveToPending(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.finalizeCurrent(ctx, "move_to_pending", req, models.ItemStatusPending, events.ReasonItemPending)
}

func (d *Dispatcher) finalizeCurrent(ctx context.Context, cmd string, req AuctionRequest, to models.ItemStatus, reason string) (state.Snapshot, error) {
	return d.apply(ctx, cmd, req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		if err := requireLive(&st.Auction); err != nil {
			return pendingEvent{}, err
		}
		cur, err := requireActiveItem(st)
		if err != nil {
			return pendingEvent{}, err
		}
		cur.Status = to
		st.Auction.ClearCurrent()
		id := cur.ID
		return pendingEvent{events.TypeStateChanged, events.StateChangedPayload{Reason: reason, ItemID: &id}}, nil
	})
}

// WithdrawItem removes an item from the auction. Without an item id the
// active item is withdrawn.
func (d *Dispatcher) WithdrawItem(ctx context.Context, req WithdrawItemRequest) (state.Snapshot, error) {
	return d.apply(ctx, "withdraw_item", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		a := &st.Auction
		if err := requireOpen(a); err != nil {
			return pendingEvent{}, err
		}

		var it *models.Item
		if req.ItemID == nil {
			cur, err := requireActiveItem(st)
			if err != nil {
				return pendingEvent{}, err
			}
			it = cur
		} else {
			it, _ = st.Item(*req.ItemID)
			if it == nil {
				return pendingEvent{}, apperr.Precondition(apperr.CodePlayerNotFound, "player %s not found", *req.ItemID)
			}
		}
		switch it.Status {
		case models.ItemStatusSold, models.ItemStatusWithdrawn:
			return pendingEvent{}, apperr.Precondition(apperr.CodePlayerNotAvailable, "%s is %s", it.Name, it.Status)
		}

		if a.CurrentItemID != nil && *a.CurrentItemID == it.ID {
			a.ClearCurrent()
		}
		it.Status = models.ItemStatusWithdrawn
		it.Bids = nil
		id := it.ID
		return pendingEvent{events.TypeStateChanged, events.StateChangedPayload{Reason: events.ReasonItemWithdrawn, ItemID: &id}}, nil
	})
}

// ShuffleRemaining randomizes the order of available items. Other items keep
// their queue slots.
func (d *Dispatcher) ShuffleRemaining(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.apply(ctx, "shuffle_remaining", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		if err := requireOpen(&st.Auction); err != nil {
			return pendingEvent{}, err
		}
		var slots []int
		for i, it := range st.Items {
			if it.Status == models.ItemStatusAvailable {
				slots = append(slots, i)
			}
		}
		if len(slots) == 0 {
			return pendingEvent{}, apperr.Precondition(apperr.CodeNoPlayersToShuffle, "no available players to shuffle").
				WithBreakdown(st.Breakdown())
		}
		avail := make([]models.Item, len(slots))
		for i, idx := range slots {
			avail[i] = st.Items[idx]
		}
		d.shuffle(len(avail), func(i, j int) { avail[i], avail[j] = avail[j], avail[i] })
		for i, idx := range slots {
			st.Items[idx] = avail[i]
		}
		return pendingEvent{events.TypeStateChanged, events.StateChangedPayload{Reason: events.ReasonQueueShuffled}}, nil
	})
}

// MovePendingToAvailable recycles parked items once the fresh queue is empty.
func (d *Dispatcher) MovePendingToAvailable(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.recycle(ctx, events.ReasonPendingRecycled, req, models.ItemStatusPending, apperr.CodeNoPendingPlayers)
}

// MoveUnsoldToAvailable recycles unsold items once the fresh queue is empty.
func (d *Dispatcher) MoveUnsoldToAvailable(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.recycle(ctx, events.ReasonUnsoldRecycled, req, models.ItemStatusUnsold, apperr.CodeNoUnsoldPlayers)
}

func (d *Dispatcher) recycle(ctx context.Context, cmd string, req AuctionRequest, from models.ItemStatus, emptyCode apperr.Code) (state.Snapshot, error) {
	return d.apply(ctx, cmd, req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		if err := requireOpen(&st.Auction); err != nil {
			return pendingEvent{}, err
		}
		breakdown := st.Breakdown()
		if breakdown.Available > 0 {
			return pendingEvent{}, apperr.Precondition(apperr.CodeAvailablePlayersRemain, "%d available players must be auctioned first", breakdown.Available).
				WithBreakdown(breakdown)
		}
		if breakdown.Of(from) == 0 {
			return pendingEvent{}, apperr.Precondition(emptyCode, "no %s players", from).
				WithBreakdown(breakdown)
		}
		for i := range st.Items {
			if st.Items[i].Status == from {
				st.Items[i].Status = models.ItemStatusAvailable
				st.Items[i].Bids = nil
			}
		}
		return pendingEvent{events.TypeStateChanged, events.StateChangedPayload{Reason: cmd}}, nil
	})
}

// RecallLastSold reverses the most recent sale. Only the latest sale can be
// recalled, and only once.
func (d *Dispatcher) RecallLastSold(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.apply(ctx, "recall_last_sold", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		a := &st.Auction
		if err := requireOpen(a); err != nil {
			return pendingEvent{}, err
		}
		idx := lastSold(st.Items)
		if idx < 0 {
			return pendingEvent{}, apperr.Precondition(apperr.CodeNothingToRecall, "no sold players to recall")
		}
		it := &st.Items[idx]
		if a.LastSaleSeq == 0 || it.SaleSeq != a.LastSaleSeq {
			return pendingEvent{}, apperr.Precondition(apperr.CodeAlreadyRecalled, "the last sale was already recalled")
		}
		if it.SoldTo == nil {
			return pendingEvent{}, apperr.Internal(errNoBuyer)
		}
		team := st.Team(*it.SoldTo)
		if team == nil {
			return pendingEvent{}, apperr.Precondition(apperr.CodeTeamNotFound, "buyer %s not found", *it.SoldTo)
		}

		team.Spent -= it.SoldPrice
		if team.RosterCount > 0 {
			team.RosterCount--
		}
		id := it.ID
		it.ClearSale()
		it.Status = models.ItemStatusAvailable
		a.LastSaleSeq = 0
		st.MoveToFront(idx)

		return pendingEvent{events.TypeStateChanged, events.StateChangedPayload{Reason: events.ReasonSaleRecalled, ItemID: &id}}, nil
	})
}

// lastSold returns the index of the most recently sold item, or -1.
func lastSold(items []models.Item) int {
	best := -1
	for i, it := range items {
		if it.Status != models.ItemStatusSold || it.SoldAt == nil {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := items[best]
		if it.SoldAt.After(*b.SoldAt) || (it.SoldAt.Equal(*b.SoldAt) && it.SaleSeq > b.SaleSeq) {
			best = i
		}
	}
	return best
}

var errNoBuyer = errors.New("sold item has no buyer")
