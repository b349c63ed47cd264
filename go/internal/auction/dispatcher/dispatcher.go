// Package dispatcher validates and applies operator and bidder commands
// against the state store. Every command either commits completely and
// returns the new snapshot, or fails with an *apperr.Error and changes nothing.
package dispatcher

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionroom/go/internal/auction/apperr"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
)

// Sink receives committed events in commit order.
type Sink interface {
	Enqueue(env events.Envelope, snap state.Snapshot)
}

// ShuffleFunc permutes n elements through swap.
type ShuffleFunc func(n int, swap func(i, j int))

type Dispatcher struct {
	store    *state.Store
	sink     Sink
	clock    clockwork.Clock
	validate *validator.Validate
	shuffle  ShuffleFunc
}

type Option func(*Dispatcher)

// WithShuffle replaces the queue shuffler, mostly for deterministic tests.
func WithShuffle(fn ShuffleFunc) Option {
	return func(d *Dispatcher) { d.shuffle = fn }
}

func New(store *state.Store, sink Sink, clock clockwork.Clock, opts ...Option) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	d := &Dispatcher{
		store:    store,
		sink:     sink,
		clock:    clock,
		validate: validator.New(),
		shuffle:  rand.Shuffle,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// pendingEvent is produced inside a mutation and published on commit.
type pendingEvent struct {
	typ     events.Type
	payload any
}

type mutation func(st *state.AuctionState, now time.Time) (pendingEvent, error)

// apply runs one command through the store's serialization point.
func (d *Dispatcher) apply(ctx context.Context, cmd string, req any, auctionID uuid.UUID, fn mutation) (state.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return state.Snapshot{}, apperr.Transport(err)
	}
	if err := d.validate.Struct(req); err != nil {
		return state.Snapshot{}, apperr.Validation("invalid "+cmd+" request", err)
	}

	now := d.clock.Now()
	var evt pendingEvent
	snap, err := d.store.Mutate(auctionID, func(st *state.AuctionState) error {
		var ferr error
		evt, ferr = fn(st, now)
		return ferr
	}, func(snap state.Snapshot) {
		d.publish(snap, evt, now)
	})
	if err != nil {
		e := classify(err)
		log.Debug().
			Str("auction_id", auctionID.String()).
			Str("command", cmd).
			Str("code", string(e.Code)).
			Msg("command rejected")
		return state.Snapshot{}, e
	}

	log.Info().
		Str("auction_id", auctionID.String()).
		Str("command", cmd).
		Int64("version", snap.Version).
		Str("status", string(snap.Status)).
		Msg("command applied")
	return snap, nil
}

func (d *Dispatcher) publish(snap state.Snapshot, evt pendingEvent, now time.Time) {
	if d.sink == nil || evt.typ == "" {
		return
	}
	env, err := events.NewEnvelope(snap.AuctionID, snap.Version, evt.typ, evt.payload, now)
	if err != nil {
		// the state is committed; subscribers heal through their next pull
		log.Error().Err(err).Str("event_type", string(evt.typ)).Msg("failed to build event envelope")
		return
	}
	env.Epoch = snap.Epoch
	d.sink.Enqueue(env, snap)
}

func classify(err error) *apperr.Error {
	if errors.Is(err, state.ErrAuctionNotFound) {
		return apperr.Precondition(apperr.CodeAuctionNotFound, "auction not found")
	}
	return apperr.As(err)
}

// Snapshot returns the current state of an auction.
func (d *Dispatcher) Snapshot(ctx context.Context, req AuctionRequest) (state.Snapshot, error) {
	if err := d.validate.Struct(req); err != nil {
		return state.Snapshot{}, apperr.Validation("invalid snapshot request", err)
	}
	snap, err := d.store.Snapshot(req.AuctionID)
	if err != nil {
		return state.Snapshot{}, classify(err)
	}
	return snap, nil
}

// ListAuctions returns every auction the store holds.
func (d *Dispatcher) ListAuctions(ctx context.Context) ([]uuid.UUID, error) {
	return d.store.List(), nil
}

// SearchItems fuzzy-searches item names, used by the operator's call flow.
func (d *Dispatcher) SearchItems(ctx context.Context, req SearchItemsRequest) ([]models.Item, error) {
	if err := d.validate.Struct(req); err != nil {
		return nil, apperr.Validation("invalid search request", err)
	}
	items, err := d.store.SearchItems(req.AuctionID, req.Query, req.Limit)
	if err != nil {
		return nil, classify(err)
	}
	return items, nil
}

func requireOpen(a *models.Auction) error {
	if a.Status == models.AuctionStatusCompleted {
		return apperr.Precondition(apperr.CodeAuctionCompleted, "auction has ended")
	}
	return nil
}

func requireRunning(a *models.Auction) error {
	if err := requireOpen(a); err != nil {
		return err
	}
	if a.Status != models.AuctionStatusRunning {
		return apperr.Precondition(apperr.CodeAuctionNotRunning, "auction is %s", a.Status)
	}
	return nil
}

// requireLive allows Running or Paused.
func requireLive(a *models.Auction) error {
	if err := requireOpen(a); err != nil {
		return err
	}
	if a.Status != models.AuctionStatusRunning && a.Status != models.AuctionStatusPaused {
		return apperr.Precondition(apperr.CodeAuctionNotRunning, "auction is %s", a.Status)
	}
	return nil
}

func requireActiveItem(st *state.AuctionState) (*models.Item, error) {
	cur := st.CurrentItem()
	if cur == nil || cur.Status != models.ItemStatusInAuction {
		return nil, apperr.Precondition(apperr.CodeNoActiveItem, "no item is in auction")
	}
	return cur, nil
}

// armTimer starts a fresh countdown for the active item.
func armTimer(a *models.Auction, now time.Time) {
	a.PausedRemainingSec = nil
	if !a.Timer.Enabled || a.Timer.DurationSec <= 0 {
		a.TimerDeadline = nil
		return
	}
	deadline := now.Add(time.Duration(a.Timer.DurationSec) * time.Second)
	a.TimerDeadline = &deadline
}
