package reconcile

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/mcdev12/auctionroom/go/internal/auction/bid"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

// Outcome reports what the tracker did with an update.
type Outcome int

const (
	Applied Outcome = iota
	// Duplicate: the event id was already applied.
	Duplicate
	// Stale: the update is older than the applied version.
	Stale
	// Superseded: a bid event for an item that is no longer tracked.
	Superseded
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Duplicate:
		return "duplicate"
	case Stale:
		return "stale"
	case Superseded:
		return "superseded"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Tracker is a subscriber's local view of one auction. It applies pulled
// snapshots and pushed events so that replays and reordering never change
// the result.
//
// Versions are compared within one authority epoch. An update stamped with
// an unseen epoch comes from a restarted authority and starts a new
// baseline; updates from an epoch that has since been replaced are stale.
type Tracker struct {
	mu      sync.RWMutex
	view    state.Snapshot
	epoch   uuid.UUID
	version int64
	retired map[uuid.UUID]struct{}
	seen    *lru.Cache
}

func NewTracker(auctionID uuid.UUID, dedupeSize int) (*Tracker, error) {
	if dedupeSize <= 0 {
		dedupeSize = 1024
	}
	seen, err := lru.New(dedupeSize)
	if err != nil {
		return nil, fmt.Errorf("create event id cache: %w", err)
	}
	return &Tracker{
		view:    state.Snapshot{AuctionID: auctionID},
		retired: make(map[uuid.UUID]struct{}),
		seen:    seen,
	}, nil
}

// Epoch is the authority epoch of the applied view, or uuid.Nil.
func (t *Tracker) Epoch() uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.epoch
}

// admitEpoch reports whether an update from epoch may be compared against
// the applied version, switching baselines when epoch is new. A nil epoch
// is treated as the current one.
func (t *Tracker) admitEpoch(epoch uuid.UUID) bool {
	if epoch == uuid.Nil || epoch == t.epoch {
		return true
	}
	if _, ok := t.retired[epoch]; ok {
		return false
	}
	if t.epoch != uuid.Nil {
		t.retired[t.epoch] = struct{}{}
	}
	t.epoch = epoch
	t.version = 0
	return true
}

// Version is the authoritative version last applied.
func (t *Tracker) Version() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// TrackedItem is the id of the item currently under the hammer, or uuid.Nil.
func (t *Tracker) TrackedItem() uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view.CurrentItemID()
}

// Status is the auction status in the local view.
func (t *Tracker) Status() models.AuctionStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view.Status
}

// View returns a copy of the current local state.
func (t *Tracker) View() state.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copyView(t.view)
}

// ApplySnapshot replaces the view unless snap is older than what has been
// applied already.
func (t *Tracker) ApplySnapshot(snap state.Snapshot) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.admitEpoch(snap.Epoch) || snap.Version < t.version {
		return Stale
	}
	t.view = copyView(snap)
	t.view.Epoch = t.epoch
	t.version = snap.Version
	return Applied
}

// ApplyEvent folds a pushed event into the view.
func (t *Tracker) ApplyEvent(env events.Envelope) (Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen.Contains(env.EventID) {
		return Duplicate, nil
	}
	if !t.admitEpoch(env.Epoch) || env.Sequence <= t.version {
		t.seen.Add(env.EventID, struct{}{})
		return Stale, nil
	}

	payload, err := env.Decode()
	if err != nil {
		return Stale, fmt.Errorf("decode %s: %w", env.EventType, err)
	}

	v := &t.view
	switch p := payload.(type) {
	case *events.AuctionStartedPayload:
		v.Status = models.AuctionStatusRunning

	case *events.ItemAdvancedPayload:
		t.openItem(p)

	case *events.BidAcceptedPayload:
		if v.CurrentItem == nil || v.CurrentItem.ID != p.ItemID {
			return Superseded, nil
		}
		t.applyBid(p)

	case *events.AuctionPausedPayload:
		v.Status = models.AuctionStatusPaused
		v.TimerSecondsRemaining = cloneSecs(p.TimerSecondsRemaining)

	case *events.AuctionResumedPayload:
		v.Status = models.AuctionStatusRunning
		v.TimerSecondsRemaining = cloneSecs(p.TimerSecondsRemaining)

	case *events.ItemSoldPayload:
		t.applySale(p)

	case *events.AuctionEndedPayload:
		v.Status = models.AuctionStatusCompleted
		t.clearCurrent()
		v.Breakdown = p.Breakdown

	case *events.StateChangedPayload:
		// carries no state; the follow-up pull does the work
	}

	t.seen.Add(env.EventID, struct{}{})
	t.version = env.Sequence
	v.Version = env.Sequence
	v.Epoch = t.epoch
	return Applied, nil
}

func (t *Tracker) openItem(p *events.ItemAdvancedPayload) {
	v := &t.view
	idx := t.itemIndex(p.ItemID)
	if idx < 0 {
		v.Items = append(v.Items, models.Item{ID: p.ItemID, Name: p.ItemName, BasePrice: p.BasePrice})
		idx = len(v.Items) - 1
	}
	it := &v.Items[idx]
	it.Status = models.ItemStatusInAuction
	it.Bids = nil

	cur := it.Clone()
	v.CurrentItem = &cur
	v.CurrentBid = 0
	v.LeadingTeamID = nil
	v.NextBid = p.NextBid
	v.TimerSecondsRemaining = cloneSecs(p.TimerSecondsRemaining)
	v.Breakdown = models.CountByStatus(v.Items)
}

func (t *Tracker) applyBid(p *events.BidAcceptedPayload) {
	v := &t.view
	if p.Amount < v.CurrentBid {
		return
	}
	rec := models.BidRecord{TeamID: p.TeamID, Amount: p.Amount, PlacedAt: p.PlacedAt}
	if last, ok := v.CurrentItem.LastBid(); !ok || last.Amount != rec.Amount || last.TeamID != rec.TeamID {
		v.CurrentItem.Bids = append(v.CurrentItem.Bids, rec)
		if idx := t.itemIndex(p.ItemID); idx >= 0 {
			v.Items[idx].Bids = append([]models.BidRecord(nil), v.CurrentItem.Bids...)
		}
	}
	team := p.TeamID
	v.CurrentBid = p.Amount
	v.LeadingTeamID = &team
	v.NextBid = p.NextBid
	if v.NextBid <= v.CurrentBid {
		v.NextBid = bid.NextBid(v.CurrentBid, v.CurrentItem.BasePrice, v.Increment)
	}
	v.TimerSecondsRemaining = cloneSecs(p.TimerSecondsRemaining)
}

func (t *Tracker) applySale(p *events.ItemSoldPayload) {
	v := &t.view
	idx := t.itemIndex(p.ItemID)
	if idx >= 0 && v.Items[idx].Status == models.ItemStatusSold && v.Items[idx].SaleSeq == p.SaleSeq {
		return
	}
	if idx >= 0 {
		it := &v.Items[idx]
		it.Status = models.ItemStatusSold
		it.SoldPrice = p.Price
		buyer, at := p.TeamID, p.SoldAt
		it.SoldTo = &buyer
		it.SoldAt = &at
		it.SaleSeq = p.SaleSeq
	}
	for i := range v.Teams {
		if v.Teams[i].ID != p.TeamID {
			continue
		}
		tm := &v.Teams[i]
		tm.Spent += p.Price
		tm.RosterCount++
		tm.Remaining = tm.Team.Remaining()
		tm.MaxBid = tm.Team.MaxBid()
	}
	v.LastSaleSeq = p.SaleSeq
	if v.CurrentItem != nil && v.CurrentItem.ID == p.ItemID {
		t.clearCurrent()
	}
	v.Breakdown = models.CountByStatus(v.Items)
}

func (t *Tracker) clearCurrent() {
	v := &t.view
	v.CurrentItem = nil
	v.CurrentBid = 0
	v.LeadingTeamID = nil
	v.NextBid = 0
	v.TimerSecondsRemaining = nil
}

func (t *Tracker) itemIndex(id uuid.UUID) int {
	for i := range t.view.Items {
		if t.view.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func copyView(s state.Snapshot) state.Snapshot {
	out := s
	out.Teams = append([]state.TeamView(nil), s.Teams...)
	out.Items = make([]models.Item, len(s.Items))
	for i, it := range s.Items {
		out.Items[i] = it.Clone()
	}
	if s.CurrentItem != nil {
		c := s.CurrentItem.Clone()
		out.CurrentItem = &c
	}
	if s.LeadingTeamID != nil {
		id := *s.LeadingTeamID
		out.LeadingTeamID = &id
	}
	out.TimerSecondsRemaining = cloneSecs(s.TimerSecondsRemaining)
	out.Increment = s.Increment.Clone()
	return out
}

func cloneSecs(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
