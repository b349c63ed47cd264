package state

import (
	"github.com/google/uuid"

	"github.com/mcdev12/auctionroom/go/internal/models"
)

// AuctionState is the complete mutable state of one auction. Items are kept
// in queue order.
type AuctionState struct {
	Auction models.Auction
	Items   []models.Item
	Teams   []models.Team
}

// Clone deep-copies the state so a failed mutation leaves nothing behind.
func (s *AuctionState) Clone() *AuctionState {
	out := &AuctionState{
		Auction: s.Auction.Clone(),
		Items:   make([]models.Item, len(s.Items)),
		Teams:   append([]models.Team(nil), s.Teams...),
	}
	for i, it := range s.Items {
		out.Items[i] = it.Clone()
	}
	return out
}

// Item returns the item with id and its queue index, or nil, -1.
func (s *AuctionState) Item(id uuid.UUID) (*models.Item, int) {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return &s.Items[i], i
		}
	}
	return nil, -1
}

// Team returns the team with id or nil.
func (s *AuctionState) Team(id uuid.UUID) *models.Team {
	for i := range s.Teams {
		if s.Teams[i].ID == id {
			return &s.Teams[i]
		}
	}
	return nil
}

// CurrentItem returns the item under the hammer, if any.
func (s *AuctionState) CurrentItem() *models.Item {
	if s.Auction.CurrentItemID == nil {
		return nil
	}
	it, _ := s.Item(*s.Auction.CurrentItemID)
	return it
}

// FirstWithStatus returns the first item in queue order with status st.
func (s *AuctionState) FirstWithStatus(st models.ItemStatus) *models.Item {
	for i := range s.Items {
		if s.Items[i].Status == st {
			return &s.Items[i]
		}
	}
	return nil
}

func (s *AuctionState) Breakdown() models.StatusBreakdown {
	return models.CountByStatus(s.Items)
}

// MoveToFront moves the item at index i to the head of the queue.
func (s *AuctionState) MoveToFront(i int) {
	if i <= 0 || i >= len(s.Items) {
		return
	}
	it := s.Items[i]
	copy(s.Items[1:i+1], s.Items[:i])
	s.Items[0] = it
}

// FromSnapshot rebuilds mutable state from an archived snapshot. A running
// auction comes back paused with its countdown frozen, so the operator
// decides when bidding continues. saleCounter must cover every sale ever
// made, recalled ones included.
func FromSnapshot(snap Snapshot, saleCounter int64) *AuctionState {
	st := &AuctionState{
		Auction: models.Auction{
			ID:          snap.AuctionID,
			Name:        snap.Name,
			Status:      snap.Status,
			CurrentBid:  snap.CurrentBid,
			Timer:       snap.Timer,
			Increment:   snap.Increment.Clone(),
			LastSaleSeq: snap.LastSaleSeq,
			SaleCounter: saleCounter,
		},
		Items: make([]models.Item, len(snap.Items)),
		Teams: make([]models.Team, len(snap.Teams)),
	}
	for i, it := range snap.Items {
		st.Items[i] = it.Clone()
		if it.SaleSeq > st.Auction.SaleCounter {
			st.Auction.SaleCounter = it.SaleSeq
		}
	}
	for i, t := range snap.Teams {
		st.Teams[i] = t.Team
	}
	if snap.LastSaleSeq > st.Auction.SaleCounter {
		st.Auction.SaleCounter = snap.LastSaleSeq
	}

	a := &st.Auction
	if snap.CurrentItem != nil {
		id := snap.CurrentItem.ID
		a.CurrentItemID = &id
		a.LeadingTeamID = cloneID(snap.LeadingTeamID)
	}
	if a.Status == models.AuctionStatusRunning {
		a.Status = models.AuctionStatusPaused
	}
	if a.Status == models.AuctionStatusPaused && snap.TimerSecondsRemaining != nil {
		v := *snap.TimerSecondsRemaining
		a.PausedRemainingSec = &v
	}
	return st
}
