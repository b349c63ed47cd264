// Package events defines the push-event contract shared by the authority,
// the gateway and subscribers.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/auctionroom/go/internal/models"
)

// Type is the closed set of pushed event kinds.
type Type string

const (
	TypeAuctionStarted Type = "AuctionStarted"
	TypeItemAdvanced   Type = "ItemAdvanced"
	TypeBidAccepted    Type = "BidAccepted"
	TypeAuctionPaused  Type = "AuctionPaused"
	TypeAuctionResumed Type = "AuctionResumed"
	TypeItemSold       Type = "ItemSold"
	TypeAuctionEnded   Type = "AuctionEnded"
	// TypeStateChanged carries no state; it tells subscribers to pull.
	TypeStateChanged Type = "StateChanged"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAuctionStarted, TypeItemAdvanced, TypeBidAccepted, TypeAuctionPaused,
		TypeAuctionResumed, TypeItemSold, TypeAuctionEnded, TypeStateChanged:
		return true
	}
	return false
}

// Envelope wraps every event on the wire. Sequence is the authoritative
// state version the event was committed at; it is only ordered within one
// Epoch.
type Envelope struct {
	EventID   uuid.UUID       `json:"eventId"`
	Epoch     uuid.UUID       `json:"epoch"`
	EventType Type            `json:"eventType"`
	AuctionID uuid.UUID       `json:"auctionId"`
	Sequence  int64           `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and stamps a fresh event id.
func NewEnvelope(auctionID uuid.UUID, seq int64, typ Type, payload any, at time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return Envelope{
		EventID:   uuid.New(),
		EventType: typ,
		AuctionID: auctionID,
		Sequence:  seq,
		Timestamp: at.UTC(),
		Payload:   raw,
	}, nil
}

// Parse decodes an envelope from raw bytes and rejects unknown kinds.
func Parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	if !env.EventType.Valid() {
		return Envelope{}, fmt.Errorf("unknown event type: %s", env.EventType)
	}
	return env, nil
}

// Subject returns the bus subject for this envelope under prefix.
func (e Envelope) Subject(prefix string) string {
	return fmt.Sprintf("%s.%s.%s", prefix, e.AuctionID, e.EventType)
}

// Decode returns the typed payload for the envelope's kind.
func (e Envelope) Decode() (any, error) {
	var target any
	switch e.EventType {
	case TypeAuctionStarted:
		target = &AuctionStartedPayload{}
	case TypeItemAdvanced:
		target = &ItemAdvancedPayload{}
	case TypeBidAccepted:
		target = &BidAcceptedPayload{}
	case TypeAuctionPaused:
		target = &AuctionPausedPayload{}
	case TypeAuctionResumed:
		target = &AuctionResumedPayload{}
	case TypeItemSold:
		target = &ItemSoldPayload{}
	case TypeAuctionEnded:
		target = &AuctionEndedPayload{}
	case TypeStateChanged:
		target = &StateChangedPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", e.EventType)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", e.EventType, err)
	}
	return target, nil
}

// AuctionStartedPayload is the payload for an AuctionStarted event
type AuctionStartedPayload struct {
	StartedAt  time.Time `json:"started_at"`
	TotalItems int       `json:"total_items"`
	TeamCount  int       `json:"team_count"`
}

// ItemAdvancedPayload is the payload for an ItemAdvanced event
type ItemAdvancedPayload struct {
	ItemID                uuid.UUID `json:"item_id"`
	ItemName              string    `json:"item_name"`
	BasePrice             int64     `json:"base_price"`
	NextBid               int64     `json:"next_bid"`
	Called                bool      `json:"called,omitempty"`
	TimerSecondsRemaining *int      `json:"timer_seconds_remaining,omitempty"`
}

// BidAcceptedPayload is the payload for a BidAccepted event
type BidAcceptedPayload struct {
	ItemID                uuid.UUID `json:"item_id"`
	TeamID                uuid.UUID `json:"team_id"`
	Amount                int64     `json:"amount"`
	NextBid               int64     `json:"next_bid"`
	PlacedAt              time.Time `json:"placed_at"`
	TimerSecondsRemaining *int      `json:"timer_seconds_remaining,omitempty"`
}

// AuctionPausedPayload is the payload for an AuctionPaused event
type AuctionPausedPayload struct {
	PausedAt              time.Time `json:"paused_at"`
	TimerSecondsRemaining *int      `json:"timer_seconds_remaining,omitempty"`
}

// AuctionResumedPayload is the payload for an AuctionResumed event
type AuctionResumedPayload struct {
	ResumedAt             time.Time  `json:"resumed_at"`
	ItemID                *uuid.UUID `json:"item_id,omitempty"`
	TimerSecondsRemaining *int       `json:"timer_seconds_remaining,omitempty"`
}

// ItemSoldPayload is the payload for an ItemSold event
type ItemSoldPayload struct {
	ItemID  uuid.UUID `json:"item_id"`
	TeamID  uuid.UUID `json:"team_id"`
	Price   int64     `json:"price"`
	SaleSeq int64     `json:"sale_seq"`
	SoldAt  time.Time `json:"sold_at"`
}

// AuctionEndedPayload is the payload for an AuctionEnded event
type AuctionEndedPayload struct {
	EndedAt   time.Time              `json:"ended_at"`
	Breakdown models.StatusBreakdown `json:"breakdown"`
}

// Reasons carried by StateChanged.
const (
	ReasonBidUndone       = "bid_undone"
	ReasonItemUnsold      = "item_unsold"
	ReasonItemPending     = "item_pending"
	ReasonItemWithdrawn   = "item_withdrawn"
	ReasonQueueShuffled   = "queue_shuffled"
	ReasonPendingRecycled = "move_pending_to_available"
	ReasonUnsoldRecycled  = "move_unsold_to_available"
	ReasonSaleRecalled    = "sale_recalled"
)

// StateChangedPayload names the command that changed state without a
// dedicated event kind.
type StateChangedPayload struct {
	Reason string     `json:"reason"`
	ItemID *uuid.UUID `json:"item_id,omitempty"`
}
