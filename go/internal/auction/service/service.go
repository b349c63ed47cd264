// Package service exposes the dispatcher as Connect RPC procedures under
// /auction.v1.AuctionService/ and provides the matching client.
package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/dispatcher"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

const ServiceName = "auction.v1.AuctionService"

const (
	StartProcedure                  = "/" + ServiceName + "/Start"
	PauseProcedure                  = "/" + ServiceName + "/Pause"
	ResumeProcedure                 = "/" + ServiceName + "/Resume"
	EndProcedure                    = "/" + ServiceName + "/End"
	AdvanceToNextItemProcedure      = "/" + ServiceName + "/AdvanceToNextItem"
	CallItemProcedure               = "/" + ServiceName + "/CallItem"
	PlaceBidProcedure               = "/" + ServiceName + "/PlaceBid"
	UndoLastBidProcedure            = "/" + ServiceName + "/UndoLastBid"
	MarkSoldProcedure               = "/" + ServiceName + "/MarkSold"
	MarkUnsoldProcedure             = "/" + ServiceName + "/MarkUnsold"
	MoveToPendingProcedure          = "/" + ServiceName + "/MoveToPending"
	WithdrawItemProcedure           = "/" + ServiceName + "/WithdrawItem"
	ShuffleRemainingProcedure       = "/" + ServiceName + "/ShuffleRemaining"
	MovePendingToAvailableProcedure = "/" + ServiceName + "/MovePendingToAvailable"
	MoveUnsoldToAvailableProcedure  = "/" + ServiceName + "/MoveUnsoldToAvailable"
	RecallLastSoldProcedure         = "/" + ServiceName + "/RecallLastSold"
	GetSnapshotProcedure            = "/" + ServiceName + "/GetSnapshot"
	SearchItemsProcedure            = "/" + ServiceName + "/SearchItems"
	ListAuctionsProcedure           = "/" + ServiceName + "/ListAuctions"
)

// Dispatcher is what the service needs from the command dispatcher.
type Dispatcher interface {
	Start(ctx context.Context, req dispatcher.StartRequest) (state.Snapshot, error)
	Pause(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	Resume(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	End(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	AdvanceToNextItem(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	CallItem(ctx context.Context, req dispatcher.CallItemRequest) (state.Snapshot, error)
	PlaceBid(ctx context.Context, req dispatcher.PlaceBidRequest) (state.Snapshot, error)
	UndoLastBid(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	MarkSold(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	MarkUnsold(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	MoveToPending(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	WithdrawItem(ctx context.Context, req dispatcher.WithdrawItemRequest) (state.Snapshot, error)
	ShuffleRemaining(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	MovePendingToAvailable(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	MoveUnsoldToAvailable(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	RecallLastSold(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	Snapshot(ctx context.Context, req dispatcher.AuctionRequest) (state.Snapshot, error)
	SearchItems(ctx context.Context, req dispatcher.SearchItemsRequest) ([]models.Item, error)
	ListAuctions(ctx context.Context) ([]uuid.UUID, error)
}

var _ Dispatcher = (*dispatcher.Dispatcher)(nil)

type SearchItemsResponse struct {
	Items []models.Item `json:"items"`
}

type ListAuctionsRequest struct{}

type ListAuctionsResponse struct {
	AuctionIDs []uuid.UUID `json:"auction_ids"`
}

type HandlerConfig struct {
	// OperatorToken guards every mutating procedure when set.
	OperatorToken string
}

// NewHandler returns the path prefix and handler to mount on a mux, in the
// shape of generated Connect handlers.
func NewHandler(d Dispatcher, cfg HandlerConfig, opts ...connect.HandlerOption) (string, http.Handler) {
	base := append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	guarded := append(append([]connect.HandlerOption(nil), base...),
		connect.WithInterceptors(NewOperatorAuthInterceptor(cfg.OperatorToken)))

	mux := http.NewServeMux()
	mux.Handle(StartProcedure, connect.NewUnaryHandler(StartProcedure, command(d.Start), guarded...))
	mux.Handle(PauseProcedure, connect.NewUnaryHandler(PauseProcedure, command(d.Pause), guarded...))
	mux.Handle(ResumeProcedure, connect.NewUnaryHandler(ResumeProcedure, command(d.Resume), guarded...))
	mux.Handle(EndProcedure, connect.NewUnaryHandler(EndProcedure, command(d.End), guarded...))
	mux.Handle(AdvanceToNextItemProcedure, connect.NewUnaryHandler(AdvanceToNextItemProcedure, command(d.AdvanceToNextItem), guarded...))
	mux.Handle(CallItemProcedure, connect.NewUnaryHandler(CallItemProcedure, command(d.CallItem), guarded...))
	mux.Handle(PlaceBidProcedure, connect.NewUnaryHandler(PlaceBidProcedure, command(d.PlaceBid), guarded...))
	mux.Handle(UndoLastBidProcedure, connect.NewUnaryHandler(UndoLastBidProcedure, command(d.UndoLastBid), guarded...))
	mux.Handle(MarkSoldProcedure, connect.NewUnaryHandler(MarkSoldProcedure, command(d.MarkSold), guarded...))
	mux.Handle(MarkUnsoldProcedure, connect.NewUnaryHandler(MarkUnsoldProcedure, command(d.MarkUnsold), guarded...))
	mux.Handle(MoveToPendingProcedure, connect.NewUnaryHandler(MoveToPendingProcedure, command(d.MoveToPending), guarded...))
	mux.Handle(WithdrawItemProcedure, connect.NewUnaryHandler(WithdrawItemProcedure, command(d.WithdrawItem), guarded...))
	mux.Handle(ShuffleRemainingProcedure, connect.NewUnaryHandler(ShuffleRemainingProcedure, command(d.ShuffleRemaining), guarded...))
	mux.Handle(MovePendingToAvailableProcedure, connect.NewUnaryHandler(MovePendingToAvailableProcedure, command(d.MovePendingToAvailable), guarded...))
	mux.Handle(MoveUnsoldToAvailableProcedure, connect.NewUnaryHandler(MoveUnsoldToAvailableProcedure, command(d.MoveUnsoldToAvailable), guarded...))
	mux.Handle(RecallLastSoldProcedure, connect.NewUnaryHandler(RecallLastSoldProcedure, command(d.RecallLastSold), guarded...))

	mux.Handle(GetSnapshotProcedure, connect.NewUnaryHandler(GetSnapshotProcedure, command(d.Snapshot), base...))
	mux.Handle(SearchItemsProcedure, connect.NewUnaryHandler(SearchItemsProcedure, searchItems(d), base...))
	mux.Handle(ListAuctionsProcedure, connect.NewUnaryHandler(ListAuctionsProcedure, listAuctions(d), base...))

	return "/" + ServiceName + "/", mux
}

// command adapts a dispatcher method to a unary handler. Every failure is
// converted to a Connect error carrying the apperr payload.
func command[Req any](fn func(context.Context, Req) (state.Snapshot, error)) func(context.Context, *connect.Request[Req]) (*connect.Response[state.Snapshot], error) {
	return func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[state.Snapshot], error) {
		snap, err := fn(ctx, *req.Msg)
		if err != nil {
			return nil, apperr.ToConnect(err)
		}
		return connect.NewResponse(&snap), nil
	}
}

func searchItems(d Dispatcher) func(context.Context, *connect.Request[dispatcher.SearchItemsRequest]) (*connect.Response[SearchItemsResponse], error) {
	return func(ctx context.Context, req *connect.Request[dispatcher.SearchItemsRequest]) (*connect.Response[SearchItemsResponse], error) {
		items, err := d.SearchItems(ctx, *req.Msg)
		if err != nil {
			return nil, apperr.ToConnect(err)
		}
		return connect.NewResponse(&SearchItemsResponse{Items: items}), nil
	}
}

func listAuctions(d Dispatcher) func(context.Context, *connect.Request[ListAuctionsRequest]) (*connect.Response[ListAuctionsResponse], error) {
	return func(ctx context.Context, _ *connect.Request[ListAuctionsRequest]) (*connect.Response[ListAuctionsResponse], error) {
		ids, err := d.ListAuctions(ctx)
		if err != nil {
			return nil, apperr.ToConnect(err)
		}
		return connect.NewResponse(&ListAuctionsResponse{AuctionIDs: ids}), nil
	}
}
