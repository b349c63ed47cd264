package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestEnvelopeDecode(t *testing.T) {
	auctionID := uuid.New()
	itemID := uuid.New()
	secs := 27
	env, err := NewEnvelope(auctionID, 12, TypeBidAccepted, BidAcceptedPayload{
		ItemID:                itemID,
		TeamID:                uuid.New(),
		Amount:                1500,
		NextBid:               2000,
		TimerSecondsRemaining: &secs,
	}, time.Now())
	assert.NoError(t, err)
	check.NotEqual(t, uuid.Nil, env.EventID)
	check.Equal(t, "auction.events."+auctionID.String()+".BidAccepted", env.Subject("auction.events"))

	raw, err := json.Marshal(env)
	assert.NoError(t, err)
	parsed, err := Parse(raw)
	assert.NoError(t, err)
	check.Equal(t, int64(12), parsed.Sequence)

	decoded, err := parsed.Decode()
	assert.NoError(t, err)
	p, ok := decoded.(*BidAcceptedPayload)
	assert.True(t, ok)
	check.Equal(t, itemID, p.ItemID)
	check.Equal(t, int64(1500), p.Amount)
	assert.NotNil(t, p.TimerSecondsRemaining)
	check.Equal(t, 27, *p.TimerSecondsRemaining)
}

func TestParseRejectsUnknownType(t *testing.T) {
	_, err := Parse([]byte(`{"eventId":"` + uuid.NewString() + `","eventType":"PickMade","payload":{}}`))
	check.Error(t, err)

	_, err = Parse([]byte(`not json`))
	check.Error(t, err)
}
