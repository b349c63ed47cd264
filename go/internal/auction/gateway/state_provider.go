package gateway

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
)

// StoreStateProvider serves snapshots straight from the in-process store.
type StoreStateProvider struct {
	store *state.Store
}

func NewStoreStateProvider(store *state.Store) *StoreStateProvider {
	return &StoreStateProvider{store: store}
}

func (p *StoreStateProvider) Snapshot(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return state.Snapshot{}, apperr.Transport(err)
	}
	snap, err := p.store.Snapshot(auctionID)
	if errors.Is(err, state.ErrAuctionNotFound) {
		return state.Snapshot{}, apperr.Precondition(apperr.CodeAuctionNotFound, "auction %s not found", auctionID)
	}
	if err != nil {
		return state.Snapshot{}, apperr.Internal(err)
	}
	return snap, nil
}

func (p *StoreStateProvider) ListAuctions(context.Context) ([]uuid.UUID, error) {
	return p.store.List(), nil
}
