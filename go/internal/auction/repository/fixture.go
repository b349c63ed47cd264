package repository

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

// Fixture is the JSON layout of go/internal/assets/auction.json. Status
// strings are normalized when the fixture is turned into state.
type Fixture struct {
	ID        uuid.UUID            `json:"id"`
	Name      string               `json:"name"`
	Status    string               `json:"status"`
	Timer     models.TimerSettings `json:"timer"`
	Increment models.IncrementRule `json:"increment"`
	Teams     []FixtureTeam        `json:"teams"`
	Items     []FixtureItem        `json:"items"`
}

type FixtureTeam struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Budget    int64     `json:"budget"`
	RosterCap int       `json:"roster_cap"`
}

type FixtureItem struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	BasePrice int64     `json:"base_price"`
	Status    string    `json:"status"`
}

func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("unmarshal fixture: %w", err)
	}
	if fx.ID == uuid.Nil {
		return nil, fmt.Errorf("fixture %s has no auction id", path)
	}
	if err := fx.Increment.Validate(); err != nil {
		return nil, fmt.Errorf("fixture increment rule: %w", err)
	}
	return &fx, nil
}

// AuctionStatus is the normalized auction status, Stopped when unset.
func (f *Fixture) AuctionStatus() (models.AuctionStatus, error) {
	if f.Status == "" {
		return models.AuctionStatusStopped, nil
	}
	return models.ParseAuctionStatus(f.Status)
}

// ItemStatus is the normalized status of item i, Available when unset.
func (f *Fixture) ItemStatus(i int) (models.ItemStatus, error) {
	if f.Items[i].Status == "" {
		return models.ItemStatusAvailable, nil
	}
	return models.ParseItemStatus(f.Items[i].Status)
}

// State builds the in-memory auction the fixture describes.
func (f *Fixture) State() (*state.AuctionState, error) {
	status, err := f.AuctionStatus()
	if err != nil {
		return nil, err
	}
	st := &state.AuctionState{
		Auction: models.Auction{
			ID:        f.ID,
			Name:      f.Name,
			Status:    status,
			Timer:     f.Timer,
			Increment: f.Increment.Clone(),
		},
		Teams: make([]models.Team, len(f.Teams)),
		Items: make([]models.Item, len(f.Items)),
	}
	for i, t := range f.Teams {
		st.Teams[i] = models.Team{ID: t.ID, Name: t.Name, Budget: t.Budget, RosterCap: t.RosterCap}
	}
	for i, it := range f.Items {
		itemStatus, err := f.ItemStatus(i)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, err)
		}
		if itemStatus == models.ItemStatusInAuction {
			itemStatus = models.ItemStatusAvailable
		}
		st.Items[i] = models.Item{ID: it.ID, Name: it.Name, Role: it.Role, BasePrice: it.BasePrice, Status: itemStatus}
	}
	if st.Auction.Status == models.AuctionStatusRunning {
		st.Auction.Status = models.AuctionStatusPaused
	}
	return st, nil
}
