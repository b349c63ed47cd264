// Package repository persists auctions in Postgres. Seeded rows hold the
// configured auction; every committed event appends the snapshot it produced
// so a restarted authority resumes where it stopped.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/outbox"
	"github.com/mcdev12/auctionroom/go/internal/auction/repository/db"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/mcdev12/auctionroom/go/internal/sqlutil"
)

var ErrAuctionNotFound = errors.New("auction not found in database")

// Querier defines what the repository needs from the database layer
type Querier interface {
	GetAuction(ctx context.Context, id uuid.UUID) (db.Auction, error)
	ListAuctionIDs(ctx context.Context) ([]uuid.UUID, error)
	ListTeams(ctx context.Context, auctionID uuid.UUID) ([]db.AuctionTeam, error)
	ListItems(ctx context.Context, auctionID uuid.UUID) ([]db.AuctionItem, error)
	LatestSnapshot(ctx context.Context, auctionID uuid.UUID) (db.AuctionSnapshot, error)
	MaxSaleSeq(ctx context.Context, auctionID uuid.UUID) (int64, error)
}

// Repository loads auctions and archives committed records.
type Repository struct {
	database *sql.DB
	queries  Querier
}

var _ outbox.Archiver = (*Repository)(nil)

func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		database: database,
		queries:  db.New(database),
	}
}

// EnsureSchema creates missing tables.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.database.ExecContext(ctx, db.Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// ListAuctions returns every stored auction id, oldest first.
func (r *Repository) ListAuctions(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := r.queries.ListAuctionIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	return ids, nil
}

// LoadAuction rebuilds an auction and the version it should resume at. The
// latest archived snapshot wins over the seeded rows.
func (r *Repository) LoadAuction(ctx context.Context, id uuid.UUID) (*state.AuctionState, int64, error) {
	snapRow, err := r.queries.LatestSnapshot(ctx, id)
	switch {
	case err == nil:
		var snap state.Snapshot
		if err := json.Unmarshal(snapRow.Snapshot, &snap); err != nil {
			return nil, 0, fmt.Errorf("failed to decode snapshot %d: %w", snapRow.Version, err)
		}
		maxSeq, err := r.queries.MaxSaleSeq(ctx, id)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get sale counter: %w", err)
		}
		log.Info().
			Str("auction_id", id.String()).
			Int64("version", snapRow.Version).
			Str("status", string(snap.Status)).
			Msg("restoring auction from snapshot")
		return state.FromSnapshot(snap, maxSeq), snapRow.Version, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, 0, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	auction, err := r.queries.GetAuction(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("%s: %w", id, ErrAuctionNotFound)
		}
		return nil, 0, fmt.Errorf("failed to get auction: %w", err)
	}
	teams, err := r.queries.ListTeams(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}
	items, err := r.queries.ListItems(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	st, err := stateFromRows(auction, teams, items)
	if err != nil {
		return nil, 0, err
	}
	return st, 1, nil
}

// Archive stores rec in one transaction. Replaying a record is a no-op.
func (r *Repository) Archive(ctx context.Context, rec outbox.Record) error {
	raw, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	env := rec.Envelope

	return sqlutil.Run(ctx, r.database, func(tx *sql.Tx) *db.Queries { return db.New(tx) }, func(q *db.Queries) error {
		n, err := q.InsertSnapshot(ctx, db.InsertSnapshotParams{
			AuctionID: env.AuctionID,
			Version:   env.Sequence,
			EventID:   env.EventID,
			EventType: string(env.EventType),
			Snapshot:  raw,
		})
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		if n == 0 {
			return nil
		}

		if err := archiveSideEffects(ctx, q, env); err != nil {
			return err
		}
		return q.UpdateAuctionStatus(ctx, db.UpdateAuctionStatusParams{
			ID:     env.AuctionID,
			Status: string(rec.Snapshot.Status),
		})
	})
}

// saleWriter is the slice of db.Queries used for the sales ledger.
type saleWriter interface {
	InsertSale(ctx context.Context, arg db.InsertSaleParams) error
	MarkSaleRecalled(ctx context.Context, arg db.MarkSaleRecalledParams) error
}

func archiveSideEffects(ctx context.Context, q saleWriter, env events.Envelope) error {
	payload, err := env.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", env.EventType, err)
	}
	switch p := payload.(type) {
	case *events.ItemSoldPayload:
		if err := q.InsertSale(ctx, db.InsertSaleParams{
			AuctionID: env.AuctionID,
			SaleSeq:   p.SaleSeq,
			ItemID:    p.ItemID,
			TeamID:    p.TeamID,
			Price:     p.Price,
			SoldAt:    p.SoldAt,
		}); err != nil {
			return fmt.Errorf("failed to insert sale: %w", err)
		}
	case *events.StateChangedPayload:
		if p.Reason != events.ReasonSaleRecalled || p.ItemID == nil {
			return nil
		}
		at := env.Timestamp
		if err := q.MarkSaleRecalled(ctx, db.MarkSaleRecalledParams{
			AuctionID:  env.AuctionID,
			ItemID:     *p.ItemID,
			RecalledAt: sqlutil.ToSqlTime(&at),
		}); err != nil {
			return fmt.Errorf("failed to mark sale recalled: %w", err)
		}
	}
	return nil
}

func stateFromRows(a db.Auction, teams []db.AuctionTeam, items []db.AuctionItem) (*state.AuctionState, error) {
	status, err := models.ParseAuctionStatus(a.Status)
	if err != nil {
		return nil, fmt.Errorf("auction %s: %w", a.ID, err)
	}
	var increment models.IncrementRule
	if err := sqlutil.FromNullJSON(a.Increment, &increment); err != nil {
		return nil, fmt.Errorf("auction %s increment: %w", a.ID, err)
	}

	st := &state.AuctionState{
		Auction: models.Auction{
			ID:        a.ID,
			Name:      a.Name,
			Status:    status,
			Timer:     models.TimerSettings{DurationSec: int(a.TimerDurationSec), Enabled: a.TimerEnabled},
			Increment: increment,
			CreatedAt: a.CreatedAt,
		},
		Teams: make([]models.Team, len(teams)),
		Items: make([]models.Item, 0, len(items)),
	}
	for i, t := range teams {
		st.Teams[i] = models.Team{
			ID:          t.ID,
			Name:        t.Name,
			Budget:      t.Budget,
			Spent:       t.Spent,
			RosterCount: int(t.RosterCount),
			RosterCap:   int(t.RosterCap),
		}
	}
	for _, it := range items {
		itemStatus, err := models.ParseItemStatus(it.Status)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, err)
		}
		// nothing is under the hammer before the first snapshot
		if itemStatus == models.ItemStatusInAuction {
			itemStatus = models.ItemStatusAvailable
		}
		st.Items = append(st.Items, models.Item{
			ID:        it.ID,
			Name:      it.Name,
			Role:      it.Role.String,
			BasePrice: it.BasePrice,
			Status:    itemStatus,
		})
	}
	// a seeded auction never resumes mid-item
	if st.Auction.Status == models.AuctionStatusRunning {
		st.Auction.Status = models.AuctionStatusPaused
	}
	return st, nil
}
