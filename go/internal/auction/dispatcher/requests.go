package dispatcher

import (
	"github.com/google/uuid"
)

// AuctionRequest addresses a command that needs nothing but the auction.
type AuctionRequest struct {
	AuctionID uuid.UUID `json:"auction_id" validate:"required"`
}

type StartRequest struct {
	AuctionID       uuid.UUID `json:"auction_id" validate:"required"`
	BypassReadiness bool      `json:"bypass_readiness"`
}

type CallItemRequest struct {
	AuctionID uuid.UUID `json:"auction_id" validate:"required"`
	ItemID    uuid.UUID `json:"item_id" validate:"required"`
}

// PlaceBidRequest bids for TeamID. A nil Amount bids the next minimum.
type PlaceBidRequest struct {
	AuctionID uuid.UUID `json:"auction_id" validate:"required"`
	TeamID    uuid.UUID `json:"team_id" validate:"required"`
	Amount    *int64    `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

// WithdrawItemRequest withdraws ItemID, or the active item when ItemID is nil.
type WithdrawItemRequest struct {
	AuctionID uuid.UUID  `json:"auction_id" validate:"required"`
	ItemID    *uuid.UUID `json:"item_id,omitempty"`
}

type SearchItemsRequest struct {
	AuctionID uuid.UUID `json:"auction_id" validate:"required"`
	Query     string    `json:"query" validate:"max=128"`
	Limit     int       `json:"limit" validate:"gte=0,lte=200"`
}
