package models

import (
	"fmt"
	"strings"
)

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	AuctionStatusStopped   AuctionStatus = "STOPPED"
	AuctionStatusRunning   AuctionStatus = "RUNNING"
	AuctionStatusPaused    AuctionStatus = "PAUSED"
	AuctionStatusCompleted AuctionStatus = "COMPLETED"
)

// ItemStatus is the auction status of a single item.
type ItemStatus string

const (
	ItemStatusAvailable ItemStatus = "AVAILABLE"
	ItemStatusInAuction ItemStatus = "IN_AUCTION"
	ItemStatusSold      ItemStatus = "SOLD"
	ItemStatusUnsold    ItemStatus = "UNSOLD"
	ItemStatusPending   ItemStatus = "PENDING"
	ItemStatusWithdrawn ItemStatus = "WITHDRAWN"
)

// AllItemStatuses lists every item status in display order.
var AllItemStatuses = []ItemStatus{
	ItemStatusAvailable,
	ItemStatusInAuction,
	ItemStatusSold,
	ItemStatusUnsold,
	ItemStatusPending,
	ItemStatusWithdrawn,
}

var auctionStatusAliases = map[string]AuctionStatus{
	"stopped":    AuctionStatusStopped,
	"notstarted": AuctionStatusStopped,
	"idle":       AuctionStatusStopped,
	"created":    AuctionStatusStopped,
	"running":    AuctionStatusRunning,
	"inprogress": AuctionStatusRunning,
	"started":    AuctionStatusRunning,
	"active":     AuctionStatusRunning,
	"live":       AuctionStatusRunning,
	"paused":     AuctionStatusPaused,
	"completed":  AuctionStatusCompleted,
	"ended":      AuctionStatusCompleted,
	"finished":   AuctionStatusCompleted,
	"done":       AuctionStatusCompleted,
}

var itemStatusAliases = map[string]ItemStatus{
	"available": ItemStatusAvailable,
	"upcoming":  ItemStatusAvailable,
	"queued":    ItemStatusAvailable,
	"inauction": ItemStatusInAuction,
	"current":   ItemStatusInAuction,
	"active":    ItemStatusInAuction,
	"live":      ItemStatusInAuction,
	"sold":      ItemStatusSold,
	"unsold":    ItemStatusUnsold,
	"pending":   ItemStatusPending,
	"deferred":  ItemStatusPending,
	"withdrawn": ItemStatusWithdrawn,
	"removed":   ItemStatusWithdrawn,
}

// normalizeStatusKey folds case and strips separators so that
// "notStarted", "NOT_STARTED" and "not-started" compare equal.
func normalizeStatusKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseAuctionStatus maps a loosely formatted status string from outside the
// engine onto the closed AuctionStatus set.
func ParseAuctionStatus(s string) (AuctionStatus, error) {
	if st, ok := auctionStatusAliases[normalizeStatusKey(s)]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown auction status %q", s)
}

// ParseItemStatus maps a loosely formatted status string onto ItemStatus.
func ParseItemStatus(s string) (ItemStatus, error) {
	if st, ok := itemStatusAliases[normalizeStatusKey(s)]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown item status %q", s)
}

func (s AuctionStatus) Valid() bool {
	switch s {
	case AuctionStatusStopped, AuctionStatusRunning, AuctionStatusPaused, AuctionStatusCompleted:
		return true
	}
	return false
}

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusAvailable, ItemStatusInAuction, ItemStatusSold,
		ItemStatusUnsold, ItemStatusPending, ItemStatusWithdrawn:
		return true
	}
	return false
}

// UnmarshalText normalizes incoming status text so decoded payloads only ever
// carry the closed set.
func (s *AuctionStatus) UnmarshalText(text []byte) error {
	st, err := ParseAuctionStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

func (s *ItemStatus) UnmarshalText(text []byte) error {
	st, err := ParseItemStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
