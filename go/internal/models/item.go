package models

import (
	"time"

	"github.com/google/uuid"
)

// BidRecord is one accepted bid on an item.
type BidRecord struct {
	TeamID   uuid.UUID `json:"team_id"`
	Amount   int64     `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
}

// Item is a single lot (a player) offered in the auction.
type Item struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Role      string      `json:"role,omitempty"`
	BasePrice int64       `json:"base_price"`
	Status    ItemStatus  `json:"status"`
	Bids      []BidRecord `json:"bids"`

	// Set only while Status is Sold.
	SoldPrice int64      `json:"sold_price,omitempty"`
	SoldTo    *uuid.UUID `json:"sold_to,omitempty"`
	SoldAt    *time.Time `json:"sold_at,omitempty"`
	SaleSeq   int64      `json:"sale_seq,omitempty"`
}

// LastBid returns the most recent accepted bid, if any.
func (i *Item) LastBid() (BidRecord, bool) {
	if len(i.Bids) == 0 {
		return BidRecord{}, false
	}
	return i.Bids[len(i.Bids)-1], true
}

// ClearSale erases sold fields and bid history.
func (i *Item) ClearSale() {
	i.Bids = nil
	i.SoldPrice = 0
	i.SoldTo = nil
	i.SoldAt = nil
	i.SaleSeq = 0
}

func (i Item) Clone() Item {
	out := i
	if i.Bids != nil {
		out.Bids = append([]BidRecord(nil), i.Bids...)
	}
	out.SoldTo = cloneUUID(i.SoldTo)
	out.SoldAt = cloneTime(i.SoldAt)
	return out
}

// StatusBreakdown counts items per status.
type StatusBreakdown struct {
	Available int `json:"available"`
	InAuction int `json:"in_auction"`
	Sold      int `json:"sold"`
	Unsold    int `json:"unsold"`
	Pending   int `json:"pending"`
	Withdrawn int `json:"withdrawn"`
	Total     int `json:"total"`
}

// CountByStatus builds a StatusBreakdown over items.
func CountByStatus(items []Item) StatusBreakdown {
	var b StatusBreakdown
	for _, it := range items {
		b.Add(it.Status)
	}
	return b
}

// Add counts one item with the given status.
func (b *StatusBreakdown) Add(s ItemStatus) {
	switch s {
	case ItemStatusAvailable:
		b.Available++
	case ItemStatusInAuction:
		b.InAuction++
	case ItemStatusSold:
		b.Sold++
	case ItemStatusUnsold:
		b.Unsold++
	case ItemStatusPending:
		b.Pending++
	case ItemStatusWithdrawn:
		b.Withdrawn++
	default:
		return
	}
	b.Total++
}

// Of returns the count for a single status.
func (b StatusBreakdown) Of(s ItemStatus) int {
	switch s {
	case ItemStatusAvailable:
		return b.Available
	case ItemStatusInAuction:
		return b.InAuction
	case ItemStatusSold:
		return b.Sold
	case ItemStatusUnsold:
		return b.Unsold
	case ItemStatusPending:
		return b.Pending
	case ItemStatusWithdrawn:
		return b.Withdrawn
	}
	return 0
}
