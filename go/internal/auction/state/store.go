// Package state holds the authoritative in-memory auction state. Each
// auction has its own lock; all writes go through Mutate.
package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sahilm/fuzzy"

	"github.com/mcdev12/auctionroom/go/internal/models"
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionExists   = errors.New("auction already exists")
)

type entry struct {
	mu      sync.RWMutex
	state   *AuctionState
	version int64
}

// Store is the per-process registry of auctions.
type Store struct {
	clock clockwork.Clock
	// epoch identifies this process's lifetime of the store. Versions are
	// only comparable within one epoch.
	epoch uuid.UUID

	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock:   clock,
		epoch:   uuid.New(),
		entries: make(map[uuid.UUID]*entry),
	}
}

// Create registers a new auction. The increment rule must be valid.
func (s *Store) Create(st *AuctionState) (Snapshot, error) {
	return s.register(st, 1)
}

// Restore registers an auction recovered from an archived snapshot. Its
// version continues from version so subscribers never see it go backwards.
func (s *Store) Restore(st *AuctionState, version int64) (Snapshot, error) {
	if version < 1 {
		version = 1
	}
	return s.register(st, version)
}

func (s *Store) register(st *AuctionState, version int64) (Snapshot, error) {
	if err := st.Auction.Increment.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("invalid increment rule: %w", err)
	}
	if !st.Auction.Status.Valid() {
		st.Auction.Status = models.AuctionStatusStopped
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[st.Auction.ID]; ok {
		return Snapshot{}, ErrAuctionExists
	}
	e := &entry{state: st.Clone(), version: version}
	s.entries[st.Auction.ID] = e

	log.Info().
		Str("auction_id", st.Auction.ID.String()).
		Int("items", len(st.Items)).
		Int("teams", len(st.Teams)).
		Int64("version", version).
		Msg("auction registered")

	return s.snapshot(e), nil
}

// Epoch returns the identifier stamped on every snapshot of this store.
func (s *Store) Epoch() uuid.UUID {
	return s.epoch
}

func (s *Store) snapshot(e *entry) Snapshot {
	snap := buildSnapshot(e.state, e.version, s.clock.Now())
	snap.Epoch = s.epoch
	return snap
}

func (s *Store) get(id uuid.UUID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrAuctionNotFound
	}
	return e, nil
}

// Mutate applies fn to a private copy of the auction state. If fn succeeds
// the copy replaces the current state, the version advances and onCommit
// runs with the new snapshot before the lock is released. If fn fails the
// state is untouched.
func (s *Store) Mutate(id uuid.UUID, fn func(st *AuctionState) error, onCommit func(Snapshot)) (Snapshot, error) {
	e, err := s.get(id)
	if err != nil {
		return Snapshot{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state.Clone()
	if err := fn(next); err != nil {
		return Snapshot{}, err
	}
	e.state = next
	e.version++

	snap := s.snapshot(e)
	if onCommit != nil {
		onCommit(snap)
	}
	return snap, nil
}

// Snapshot returns the current public state of an auction.
func (s *Store) Snapshot(id uuid.UUID) (Snapshot, error) {
	e, err := s.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return s.snapshot(e), nil
}

// Version returns the current state version of an auction.
func (s *Store) Version(id uuid.UUID) (int64, error) {
	e, err := s.get(id)
	if err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version, nil
}

// Items returns the item queue in order.
func (s *Store) Items(id uuid.UUID) ([]models.Item, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Item, len(e.state.Items))
	for i, it := range e.state.Items {
		out[i] = it.Clone()
	}
	return out, nil
}

// Breakdown counts items per status.
func (s *Store) Breakdown(id uuid.UUID) (models.StatusBreakdown, error) {
	e, err := s.get(id)
	if err != nil {
		return models.StatusBreakdown{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Breakdown(), nil
}

// List returns all registered auction ids in a stable order.
func (s *Store) List() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

type itemSource []models.Item

func (s itemSource) String(i int) string { return s[i].Name }
func (s itemSource) Len() int            { return len(s) }

// SearchItems fuzzy-matches item names. An empty query returns the first
// limit items in queue order.
func (s *Store) SearchItems(id uuid.UUID, query string, limit int) ([]models.Item, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	items := make(itemSource, len(e.state.Items))
	for i, it := range e.state.Items {
		items[i] = it.Clone()
	}
	e.mu.RUnlock()

	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	if query == "" {
		return items[:limit], nil
	}

	matches := fuzzy.FindFrom(query, items)
	out := make([]models.Item, 0, limit)
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, items[m.Index])
	}
	return out, nil
}
