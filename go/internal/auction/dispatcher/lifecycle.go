package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

// Readiness lists reasons an auction cannot start yet.
func Readiness(st *state.AuctionState) []string {
	var issues []string
	if len(st.Teams) == 0 {
		issues = append(issues, "no teams registered")
	}
	if st.Breakdown().Available == 0 {
		issues = append(issues, "no available players")
	}
	for _, t := range st.Teams {
		if t.Budget <= 0 {
			issues = append(issues, fmt.Sprintf("team %q has no budget", t.Name))
		}
		if t.RosterCap <= 0 {
			issues = append(issues, fmt.Sprintf("team %q has no roster slots", t.Name))
		}
	}
	return issues
}

// Start moves a stopped auction to Running.
func (d *Dispatcher) Start(ctx context.Context, req StartRequest) (state.Snapshot, error) {
	return d.apply(ctx, "start", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		a := &st.Auction
		switch a.Status {
		case models.AuctionStatusCompleted:
			return pendingEvent{}, requireOpen(a)
		case models.AuctionStatusRunning, models.AuctionStatusPaused:
			return pendingEvent{}, apperr.Precondition(apperr.CodeAuctionAlreadyStarted, "auction already started")
		}
		if !req.BypassReadiness {
			if issues := Readiness(st); len(issues) > 0 {
				return pendingEvent{}, apperr.Precondition(apperr.CodeNotReady, "auction is not ready to start").
					WithIssues(issues).
					WithBreakdown(st.Breakdown())
			}
		}

		a.Status = models.AuctionStatusRunning
		started := now
		a.StartedAt = &started
		if a.HasActiveItem() {
			armTimer(a, now)
		}
		return pendingEvent{events.TypeAuctionStarted, events.AuctionStartedPayload{
			StartedAt:  now,
			TotalItems: len(st.Items),
			TeamCount:  len(st.Teams),
		}}, nil
	})
}

// Pause freezes the auction and its countdown.
func (d *Dispatcher) Pause(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.apply(ctx, "pause", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		a := &st.Auction
		if err := requireRunning(a); err != nil {
			return pendingEvent{}, err
		}
		remaining := state.TimerRemaining(a, now)
		a.Status = models.AuctionStatusPaused
		a.PausedRemainingSec = remaining
		a.TimerDeadline = nil
		return pendingEvent{events.TypeAuctionPaused, events.AuctionPausedPayload{
			PausedAt:              now,
			TimerSecondsRemaining: remaining,
		}}, nil
	})
}

// Resume restarts a paused auction from the frozen remainder, or with a
// fresh countdown when an item is active but none was frozen.
func (d *Dispatcher) Resume(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.apply(ctx, "resume", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		a := &st.Auction
		if err := requireOpen(a); err != nil {
			return pendingEvent{}, err
		}
		if a.Status != models.AuctionStatusPaused {
			return pendingEvent{}, apperr.Precondition(apperr.CodeAuctionNotPaused, "auction is %s", a.Status)
		}
		a.Status = models.AuctionStatusRunning
		switch {
		case a.PausedRemainingSec != nil:
			deadline := now.Add(time.Duration(*a.PausedRemainingSec) * time.Second)
			a.TimerDeadline = &deadline
			a.PausedRemainingSec = nil
		case a.CurrentItemID != nil:
			// nothing was frozen; the active item gets a fresh countdown
			armTimer(a, now)
		}
		return pendingEvent{events.TypeAuctionResumed, events.AuctionResumedPayload{
			ResumedAt:             now,
			ItemID:                a.CurrentItemID,
			TimerSecondsRemaining: state.TimerRemaining(a, now),
		}}, nil
	})
}

// End completes the auction. An unfinished item goes back to the queue.
func (d *Dispatcher) End(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	return d.apply(ctx, "end", req, req.AuctionID, func(st *state.AuctionState, now time.Time) (pendingEvent, error) {
		a := &st.Auction
		if err := requireOpen(a); err != nil {
			return pendingEvent{}, err
		}
		if cur := st.CurrentItem(); cur != nil {
			cur.Status = models.ItemStatusAvailable
			cur.Bids = nil
		}
		a.ClearCurrent()
		a.Status = models.AuctionStatusCompleted
		ended := now
		a.EndedAt = &ended
		return pendingEvent{events.TypeAuctionEnded, events.AuctionEndedPayload{
			EndedAt:   now,
			Breakdown: st.Breakdown(),
		}}, nil
	})
}
