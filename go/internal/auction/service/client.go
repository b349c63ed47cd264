package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/dispatcher"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

type auctionClient = connect.Client[dispatcher.AuctionRequest, state.Snapshot]

// Client calls a remote AuctionService. Every error it returns is an
// *apperr.Error.
type Client struct {
	start    *connect.Client[dispatcher.StartRequest, state.Snapshot]
	callItem *connect.Client[dispatcher.CallItemRequest, state.Snapshot]
	placeBid *connect.Client[dispatcher.PlaceBidRequest, state.Snapshot]
	withdraw *connect.Client[dispatcher.WithdrawItemRequest, state.Snapshot]
	search   *connect.Client[dispatcher.SearchItemsRequest, SearchItemsResponse]
	list     *connect.Client[ListAuctionsRequest, ListAuctionsResponse]
	simple   map[string]*auctionClient
}

// NewClient targets baseURL. A non-empty token is sent as the operator
// bearer token.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(NewBearerInterceptor(token)),
	}, opts...)

	c := &Client{
		start:    connect.NewClient[dispatcher.StartRequest, state.Snapshot](httpClient, baseURL+StartProcedure, opts...),
		callItem: connect.NewClient[dispatcher.CallItemRequest, state.Snapshot](httpClient, baseURL+CallItemProcedure, opts...),
		placeBid: connect.NewClient[dispatcher.PlaceBidRequest, state.Snapshot](httpClient, baseURL+PlaceBidProcedure, opts...),
		withdraw: connect.NewClient[dispatcher.WithdrawItemRequest, state.Snapshot](httpClient, baseURL+WithdrawItemProcedure, opts...),
		search:   connect.NewClient[dispatcher.SearchItemsRequest, SearchItemsResponse](httpClient, baseURL+SearchItemsProcedure, opts...),
		list:     connect.NewClient[ListAuctionsRequest, ListAuctionsResponse](httpClient, baseURL+ListAuctionsProcedure, opts...),
		simple:   make(map[string]*auctionClient),
	}
	for _, p := range []string{
		PauseProcedure, ResumeProcedure, EndProcedure, AdvanceToNextItemProcedure,
		UndoLastBidProcedure, MarkSoldProcedure, MarkUnsoldProcedure, MoveToPendingProcedure,
		ShuffleRemainingProcedure, MovePendingToAvailableProcedure, MoveUnsoldToAvailableProcedure,
		RecallLastSoldProcedure, GetSnapshotProcedure,
	} {
		c.simple[p] = connect.NewClient[dispatcher.AuctionRequest, state.Snapshot](httpClient, baseURL+p, opts...)
	}
	return c
}

func call[Req, Res any](ctx context.Context, cl *connect.Client[Req, Res], req Req) (*Res, error) {
	resp, err := cl.CallUnary(ctx, connect.NewRequest(&req))
	if err != nil {
		return nil, apperr.FromConnect(err)
	}
	return resp.Msg, nil
}

func (c *Client) auction(ctx context.Context, procedure string, auctionID uuid.UUID) (state.Snapshot, error) {
	snap, err := call(ctx, c.simple[procedure], dispatcher.AuctionRequest{AuctionID: auctionID})
	if err != nil {
		return state.Snapshot{}, err
	}
	return *snap, nil
}

func unwrap(snap *state.Snapshot, err error) (state.Snapshot, error) {
	if err != nil {
		return state.Snapshot{}, err
	}
	return *snap, nil
}

// Snapshot pulls the current state. Together with ListAuctions it lets the
// client act as reconcile.SnapshotSource and gateway.StateProvider.
func (c *Client) Snapshot(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, GetSnapshotProcedure, auctionID)
}

func (c *Client) Start(ctx context.Context, auctionID uuid.UUID, bypassReadiness bool) (state.Snapshot, error) {
	return unwrap(call(ctx, c.start, dispatcher.StartRequest{AuctionID: auctionID, BypassReadiness: bypassReadiness}))
}

func (c *Client) Pause(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, PauseProcedure, auctionID)
}

func (c *Client) Resume(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, ResumeProcedure, auctionID)
}

func (c *Client) End(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, EndProcedure, auctionID)
}

func (c *Client) AdvanceToNextItem(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, AdvanceToNextItemProcedure, auctionID)
}

func (c *Client) CallItem(ctx context.Context, auctionID, itemID uuid.UUID) (state.Snapshot, error) {
	return unwrap(call(ctx, c.callItem, dispatcher.CallItemRequest{AuctionID: auctionID, ItemID: itemID}))
}

// PlaceBid bids amount for team; a nil amount bids the next minimum.
func (c *Client) PlaceBid(ctx context.Context, auctionID, teamID uuid.UUID, amount *int64) (state.Snapshot, error) {
	return unwrap(call(ctx, c.placeBid, dispatcher.PlaceBidRequest{AuctionID: auctionID, TeamID: teamID, Amount: amount}))
}

func (c *Client) UndoLastBid(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, UndoLastBidProcedure, auctionID)
}

func (c *Client) MarkSold(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, MarkSoldProcedure, auctionID)
}

func (c *Client) MarkUnsold(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, MarkUnsoldProcedure, auctionID)
}

func (c *Client) MoveToPending(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, MoveToPendingProcedure, auctionID)
}

// WithdrawItem withdraws itemID, or the active item when itemID is nil.
func (c *Client) WithdrawItem(ctx context.Context, auctionID uuid.UUID, itemID *uuid.UUID) (state.Snapshot, error) {
	return unwrap(call(ctx, c.withdraw, dispatcher.WithdrawItemRequest{AuctionID: auctionID, ItemID: itemID}))
}

func (c *Client) ShuffleRemaining(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, ShuffleRemainingProcedure, auctionID)
}

func (c *Client) MovePendingToAvailable(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, MovePendingToAvailableProcedure, auctionID)
}

func (c *Client) MoveUnsoldToAvailable(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, MoveUnsoldToAvailableProcedure, auctionID)
}

func (c *Client) RecallLastSold(ctx context.Context, auctionID uuid.UUID) (state.Snapshot, error) {
	return c.auction(ctx, RecallLastSoldProcedure, auctionID)
}

func (c *Client) SearchItems(ctx context.Context, auctionID uuid.UUID, query string, limit int) ([]models.Item, error) {
	resp, err := call(ctx, c.search, dispatcher.SearchItemsRequest{AuctionID: auctionID, Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) ListAuctions(ctx context.Context) ([]uuid.UUID, error) {
	resp, err := call(ctx, c.list, ListAuctionsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.AuctionIDs, nil
}
