package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/dispatcher"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

const operatorToken = "s3cret"

type ServiceTestSuite struct {
	suite.Suite

	ctx       context.Context
	srv       *httptest.Server
	operator  *Client
	anonymous *Client

	auctionID uuid.UUID
	team      uuid.UUID
	items     []uuid.UUID
}

func TestService(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	clock := clockwork.NewFakeClock()
	store := state.NewStore(clock)

	s.auctionID = uuid.New()
	s.team = uuid.New()
	s.items = []uuid.UUID{uuid.New(), uuid.New()}
	_, err := store.Create(&state.AuctionState{
		Auction: models.Auction{
			ID:        s.auctionID,
			Name:      "service",
			Status:    models.AuctionStatusStopped,
			Timer:     models.TimerSettings{DurationSec: 30, Enabled: true},
			Increment: models.IncrementRule{Fixed: 500},
		},
		Items: []models.Item{
			{ID: s.items[0], Name: "Ravindra Jadeja", BasePrice: 1000, Status: models.ItemStatusAvailable},
			{ID: s.items[1], Name: "Rashid Khan", BasePrice: 2000, Status: models.ItemStatusPending},
		},
		Teams: []models.Team{{ID: s.team, Name: "Chennai", Budget: 100000, RosterCap: 15}},
	})
	s.Require().NoError(err)

	d := dispatcher.New(store, nil, clock)
	mux := http.NewServeMux()
	mux.Handle(NewHandler(d, HandlerConfig{OperatorToken: operatorToken}))
	s.srv = httptest.NewServer(mux)

	s.operator = NewClient(s.srv.Client(), s.srv.URL, operatorToken)
	s.anonymous = NewClient(s.srv.Client(), s.srv.URL, "")
}

func (s *ServiceTestSuite) TearDownTest() {
	s.srv.Close()
}

func (s *ServiceTestSuite) TestCommandsRequireOperatorToken() {
	_, err := s.anonymous.Start(s.ctx, s.auctionID, false)
	s.Require().Error(err)
	e := apperr.As(err)
	s.Equal(apperr.KindAuth, e.Kind)
	s.False(apperr.Retryable(err))

	snap, err := s.anonymous.Snapshot(s.ctx, s.auctionID)
	s.Require().NoError(err)
	s.Equal(models.AuctionStatusStopped, snap.Status)
}

func (s *ServiceTestSuite) TestBidFlowOverRPC() {
	snap, err := s.operator.Start(s.ctx, s.auctionID, false)
	s.Require().NoError(err)
	s.Equal(models.AuctionStatusRunning, snap.Status)

	snap, err = s.operator.AdvanceToNextItem(s.ctx, s.auctionID)
	s.Require().NoError(err)
	s.Equal(s.items[0], snap.CurrentItemID())
	s.Equal(int64(1000), snap.NextBid)
	s.Require().NotNil(snap.TimerSecondsRemaining)
	s.Equal(30, *snap.TimerSecondsRemaining)

	snap, err = s.operator.PlaceBid(s.ctx, s.auctionID, s.team, nil)
	s.Require().NoError(err)
	s.Equal(int64(1000), snap.CurrentBid)
	s.Equal(int64(1500), snap.NextBid)

	_, err = s.operator.PlaceBid(s.ctx, s.auctionID, s.team, nil)
	s.True(apperr.HasCode(err, apperr.CodeAlreadyLeading))

	snap, err = s.operator.MarkSold(s.ctx, s.auctionID)
	s.Require().NoError(err)
	team, ok := snap.Team(s.team)
	s.Require().True(ok)
	s.Equal(int64(1000), team.Spent)
	s.Equal(int64(99000), team.Remaining)
}

func (s *ServiceTestSuite) TestBreakdownSurvivesTheWire() {
	_, err := s.operator.Start(s.ctx, s.auctionID, false)
	s.Require().NoError(err)
	_, err = s.operator.AdvanceToNextItem(s.ctx, s.auctionID)
	s.Require().NoError(err)
	_, err = s.operator.MarkUnsold(s.ctx, s.auctionID)
	s.Require().NoError(err)

	_, err = s.operator.AdvanceToNextItem(s.ctx, s.auctionID)
	s.Require().Error(err)
	e := apperr.As(err)
	s.Equal(apperr.KindPrecondition, e.Kind)
	s.Equal(apperr.CodeNoAvailablePlayers, e.Code)
	s.Require().NotNil(e.Details)
	s.Require().NotNil(e.Details.Breakdown)
	s.Equal(models.StatusBreakdown{Unsold: 1, Pending: 1, Total: 2}, *e.Details.Breakdown)

	snap, err := s.operator.MovePendingToAvailable(s.ctx, s.auctionID)
	s.Require().NoError(err)
	s.Equal(1, snap.Breakdown.Available)
}

func (s *ServiceTestSuite) TestValidationAndNotFound() {
	_, err := s.operator.Pause(s.ctx, uuid.Nil)
	s.Equal(apperr.KindValidation, apperr.As(err).Kind)

	_, err = s.operator.Pause(s.ctx, uuid.New())
	s.True(apperr.HasCode(err, apperr.CodeAuctionNotFound))
}

func (s *ServiceTestSuite) TestSearchItems() {
	items, err := s.anonymous.SearchItems(s.ctx, s.auctionID, "rashid", 5)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(s.items[1], items[0].ID)
}

func (s *ServiceTestSuite) TestListAuctionsAnonymously() {
	ids, err := s.anonymous.ListAuctions(s.ctx)
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{s.auctionID}, ids)
}
