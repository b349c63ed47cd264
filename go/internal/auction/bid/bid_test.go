package bid

import (
	"math"
	"math/rand"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/mcdev12/auctionroom/go/internal/models"
)

func TestNextBidFixedScenario(t *testing.T) {
	rule := models.IncrementRule{Fixed: 500}
	check.Equal(t, int64(1000), NextBid(0, 1000, rule))
	check.Equal(t, int64(1500), NextBid(1000, 1000, rule))
}

func TestNextBidSlabScenario(t *testing.T) {
	rule := models.IncrementRule{Slabs: []models.IncrementSlab{
		{From: 0, To: 2000, Increment: 100},
		{From: 2001, To: 10000, Increment: 500},
	}}
	check.Equal(t, int64(100), IncrementFor(1800, rule))
	check.Equal(t, int64(1900), NextBid(1800, 500, rule))
	check.Equal(t, int64(500), IncrementFor(2100, rule))
	check.Equal(t, int64(2600), NextBid(2100, 500, rule))

	// past the last slab with no fixed increment
	check.Equal(t, DefaultIncrement, IncrementFor(50000, rule))
}

func TestIncrementForFallbacks(t *testing.T) {
	check.Equal(t, DefaultIncrement, IncrementFor(10, models.IncrementRule{}))
	check.Equal(t, int64(25), IncrementFor(10, models.IncrementRule{Fixed: 25}))

	zeroSlab := models.IncrementRule{Fixed: 40, Slabs: []models.IncrementSlab{{From: 0, To: 100, Increment: 0}}}
	check.Equal(t, int64(40), IncrementFor(50, zeroSlab))

	gap := models.IncrementRule{Slabs: []models.IncrementSlab{{From: 0, To: 100, Increment: 5}, {From: 200, To: 300, Increment: 9}}}
	check.Equal(t, DefaultIncrement, IncrementFor(150, gap))
	check.Equal(t, int64(9), IncrementFor(200, gap))
	check.Equal(t, int64(9), IncrementFor(300, gap))
}

func TestNextBidNonPositiveBase(t *testing.T) {
	check.Equal(t, DefaultIncrement, NextBid(0, 0, models.IncrementRule{}))
	check.Equal(t, int64(30), NextBid(0, -5, models.IncrementRule{Fixed: 30}))
}

func TestNextBidSaturates(t *testing.T) {
	rule := models.IncrementRule{Fixed: 500}
	check.Equal(t, int64(math.MaxInt64), NextBid(math.MaxInt64-10, 1000, rule))
	check.Equal(t, int64(math.MaxInt64), NextBid(math.MaxInt64, 1000, rule))
	check.Equal(t, int64(math.MaxInt64), NextBid(math.MaxInt64-500, 1000, rule))
	check.Equal(t, int64(math.MaxInt64-1), NextBid(math.MaxInt64-501, 1000, rule))
}

// randomRule builds a sorted, non-overlapping slab table.
func randomRule(r *rand.Rand) models.IncrementRule {
	var rule models.IncrementRule
	if r.Intn(2) == 0 {
		rule.Fixed = int64(r.Intn(300))
	}
	from := int64(r.Intn(500))
	for n := r.Intn(6); n > 0; n-- {
		to := from + int64(r.Intn(5000))
		rule.Slabs = append(rule.Slabs, models.IncrementSlab{From: from, To: to, Increment: int64(r.Intn(700)) - 50})
		from = to + 1 + int64(r.Intn(1000))
	}
	return rule
}

func expectedIncrement(amount int64, rule models.IncrementRule) int64 {
	for _, s := range rule.Slabs {
		if s.From <= amount && amount <= s.To && s.Increment > 0 {
			return s.Increment
		}
	}
	if rule.Fixed > 0 {
		return rule.Fixed
	}
	return DefaultIncrement
}

func TestIncrementForProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		rule := randomRule(r)
		assert.NoError(t, rule.Validate())

		amount := int64(r.Intn(40000))
		inc := IncrementFor(amount, rule)
		check.True(t, inc > 0)
		check.Equal(t, expectedIncrement(amount, rule), inc)

		base := int64(r.Intn(5000)) + 1
		check.Equal(t, base, NextBid(0, base, rule))
		if amount > 0 {
			next := NextBid(amount, base, rule)
			check.Equal(t, amount+inc, next)
			check.True(t, next > amount)
		}
	}
}

func TestCheckEligibility(t *testing.T) {
	team := models.Team{Budget: 100000, Spent: 85000, RosterCount: 14, RosterCap: 15}
	in := EligibilityInput{
		Status:        models.AuctionStatusRunning,
		ItemInAuction: true,
		Team:          team,
		Amount:        15000,
	}
	check.Equal(t, Eligibility{Eligible: true}, CheckEligibility(in))

	over := in
	over.Amount = 15001
	check.Equal(t, ReasonInsufficientFunds, CheckEligibility(over).Reason)

	leader := in
	leader.IsLeader = true
	check.Equal(t, ReasonAlreadyLeading, CheckEligibility(leader).Reason)

	paused := in
	paused.Status = models.AuctionStatusPaused
	check.Equal(t, ReasonAuctionNotRunning, CheckEligibility(paused).Reason)

	idle := in
	idle.ItemInAuction = false
	check.Equal(t, ReasonNoActiveItem, CheckEligibility(idle).Reason)
}

func TestRosterCapNeverEligible(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		team := models.Team{
			Budget:    int64(r.Intn(1_000_000)) + 1,
			RosterCap: r.Intn(20) + 1,
		}
		team.RosterCount = team.RosterCap + r.Intn(2)
		check.Equal(t, int64(0), team.MaxBid())

		res := CheckEligibility(EligibilityInput{
			Status:        models.AuctionStatusRunning,
			ItemInAuction: true,
			Team:          team,
			Amount:        int64(r.Intn(100)) + 1,
		})
		check.False(t, res.Eligible)
		check.Equal(t, ReasonRosterFull, res.Reason)
	}
}
