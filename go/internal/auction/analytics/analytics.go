// Package analytics watches the event feed for bid wars. It is an optional
// observer and never feeds back into auction state.
package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/coocood/freecache"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
)

var hundred = decimal.NewFromInt(100)

type Config struct {
	// Window is how long a team's bids count towards a war.
	Window   time.Duration `yaml:"window" validate:"gte=1s"`
	MinBids  int           `yaml:"min_bids" validate:"gte=2"`
	MinTeams int           `yaml:"min_teams" validate:"gte=2"`
	// CacheMB sizes the counter cache.
	CacheMB int `yaml:"cache_mb" validate:"gte=1"`
}

func DefaultConfig() Config {
	return Config{Window: 30 * time.Second, MinBids: 4, MinTeams: 2, CacheMB: 1}
}

// BidWar describes sustained competition on one item.
type BidWar struct {
	ItemID    uuid.UUID
	Teams     []uuid.UUID
	Bids      int
	Amount    int64
	BasePrice int64
	// Premium is the percentage of Amount over BasePrice.
	Premium decimal.Decimal
}

// Observer counts bids per team in a sliding window.
type Observer struct {
	cfg   Config
	cache *freecache.Cache

	mu    sync.Mutex
	item  uuid.UUID
	base  int64
	teams map[uuid.UUID]struct{}
	bids  int
	onWar func(BidWar)
}

type clockTimer struct {
	clock clockwork.Clock
}

func (t clockTimer) Now() uint32 {
	return uint32(t.clock.Now().Unix())
}

func NewObserver(cfg Config, clock clockwork.Clock, onWar func(BidWar)) *Observer {
	def := DefaultConfig()
	if cfg.Window < time.Second {
		cfg.Window = def.Window
	}
	if cfg.MinBids < 2 {
		cfg.MinBids = def.MinBids
	}
	if cfg.MinTeams < 2 {
		cfg.MinTeams = def.MinTeams
	}
	if cfg.CacheMB < 1 {
		cfg.CacheMB = def.CacheMB
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Observer{
		cfg:   cfg,
		cache: freecache.NewCacheCustomTimer(cfg.CacheMB*1024*1024, clockTimer{clock}),
		teams: make(map[uuid.UUID]struct{}),
		onWar: onWar,
	}
}

// Observe folds one event in and reports a bid war if the bid it carries
// keeps one going.
func (o *Observer) Observe(env events.Envelope) (BidWar, bool) {
	switch env.EventType {
	case events.TypeItemAdvanced, events.TypeBidAccepted, events.TypeItemSold:
	default:
		return BidWar{}, false
	}
	payload, err := env.Decode()
	if err != nil {
		log.Warn().Err(err).Str("event_id", env.EventID.String()).Msg("analytics skipped event")
		return BidWar{}, false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	switch p := payload.(type) {
	case *events.ItemAdvancedPayload:
		o.reset(p.ItemID, p.BasePrice)
	case *events.ItemSoldPayload:
		if p.ItemID == o.item && o.base > 0 {
			log.Info().
				Str("item_id", p.ItemID.String()).
				Int64("price", p.Price).
				Str("premium_pct", Premium(p.Price, o.base).StringFixed(1)).
				Int("bids", o.bids).
				Msg("item sold")
		}
		o.reset(uuid.Nil, 0)
	case *events.BidAcceptedPayload:
		if p.ItemID != o.item {
			return BidWar{}, false
		}
		return o.bid(p)
	}
	return BidWar{}, false
}

func (o *Observer) reset(item uuid.UUID, base int64) {
	for team := range o.teams {
		o.cache.Del(o.key(team))
	}
	o.item, o.base, o.bids = item, base, 0
	o.teams = make(map[uuid.UUID]struct{})
}

func (o *Observer) key(team uuid.UUID) []byte {
	return []byte(o.item.String() + ":" + team.String())
}

func (o *Observer) bid(p *events.BidAcceptedPayload) (BidWar, bool) {
	o.bids++
	o.teams[p.TeamID] = struct{}{}

	ttl := int(o.cfg.Window / time.Second)
	if _, err := o.incr(o.key(p.TeamID), ttl); err != nil {
		log.Warn().Err(err).Msg("bid counter update failed")
		return BidWar{}, false
	}

	var active []uuid.UUID
	total := 0
	for team := range o.teams {
		n, err := o.count(o.key(team))
		if err != nil {
			continue
		}
		active = append(active, team)
		total += n
	}
	if len(active) < o.cfg.MinTeams || total < o.cfg.MinBids {
		return BidWar{}, false
	}
	sort.Slice(active, func(i, j int) bool { return active[i].String() < active[j].String() })

	war := BidWar{
		ItemID:    p.ItemID,
		Teams:     active,
		Bids:      total,
		Amount:    p.Amount,
		BasePrice: o.base,
		Premium:   Premium(p.Amount, o.base),
	}
	log.Info().
		Str("item_id", p.ItemID.String()).
		Int("teams", len(active)).
		Int("bids", total).
		Int64("amount", p.Amount).
		Str("premium_pct", war.Premium.StringFixed(1)).
		Msg("bid war")
	if o.onWar != nil {
		o.onWar(war)
	}
	return war, true
}

func (o *Observer) count(key []byte) (int, error) {
	v, err := o.cache.Get(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(v))
}

// incr bumps the counter under key and restarts its window.
func (o *Observer) incr(key []byte, ttl int) (int, error) {
	n, err := o.count(key)
	if err != nil && err != freecache.ErrNotFound {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	n++
	if err := o.cache.Set(key, []byte(strconv.Itoa(n)), ttl); err != nil {
		return 0, fmt.Errorf("write counter: %w", err)
	}
	return n, nil
}

// Premium is the percentage by which amount exceeds base, rounded to one
// decimal place. A zero base yields zero.
func Premium(amount, base int64) decimal.Decimal {
	if base <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(amount - base).
		Mul(hundred).
		Div(decimal.NewFromInt(base)).
		Round(1)
}
