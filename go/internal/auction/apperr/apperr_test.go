package apperr

import (
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/mcdev12/auctionroom/go/internal/models"
)

func TestConnectRoundTripKeepsBreakdown(t *testing.T) {
	breakdown := models.StatusBreakdown{Sold: 5, Pending: 3, Total: 8}
	orig := Precondition(CodeNoAvailablePlayers, "no available players").WithBreakdown(breakdown)

	cerr := ToConnect(orig)
	check.Equal(t, connect.CodeFailedPrecondition, cerr.Code())
	check.Equal(t, 1, len(cerr.Details()))

	back := FromConnect(fmt.Errorf("call failed: %w", cerr))
	assert.NotNil(t, back)
	check.Equal(t, KindPrecondition, back.Kind)
	check.Equal(t, CodeNoAvailablePlayers, back.Code)
	assert.NotNil(t, back.Details)
	assert.NotNil(t, back.Details.Breakdown)
	check.Equal(t, breakdown, *back.Details.Breakdown)
}

func TestConnectCodes(t *testing.T) {
	check.Equal(t, connect.CodeInvalidArgument, Validation("bad", nil).ConnectCode())
	check.Equal(t, connect.CodeNotFound, Precondition(CodePlayerNotFound, "x").ConnectCode())
	check.Equal(t, connect.CodePermissionDenied, Auth("no").ConnectCode())
	check.Equal(t, connect.CodeUnavailable, Transport(errors.New("dial tcp: refused")).ConnectCode())
	check.Equal(t, connect.CodeInternal, Internal(errors.New("boom")).ConnectCode())
}

func TestFromConnectWithoutDetail(t *testing.T) {
	e := FromConnect(connect.NewError(connect.CodeUnavailable, errors.New("dial tcp 10.0.0.1:443: connection refused")))
	check.Equal(t, KindTransport, e.Kind)
	check.Equal(t, "connection to auction server lost", e.Message)
	check.True(t, Retryable(e))

	e = FromConnect(errors.New("plain"))
	check.Equal(t, KindInternal, e.Kind)
}

func TestIsAndHasCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Precondition(CodeBidTooLow, "bid %d below %d", 10, 20))
	check.True(t, HasCode(err, CodeBidTooLow))
	check.False(t, HasCode(err, CodeNoBids))
	check.True(t, errors.Is(err, New(KindPrecondition, CodeBidTooLow, "")))
	check.Equal(t, "bid 10 below 20", As(err).Message)
}
