package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/auctionroom/go/internal/auction/repository"
	"github.com/mcdev12/auctionroom/go/internal/auction/repository/db"
	"github.com/mcdev12/auctionroom/go/internal/dbconfig"
)

func main() {
	ctx := context.Background()

	path := "go/internal/assets/auction.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load and check the fixture
	fx, err := repository.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(1)
	}
	status, err := fx.AuctionStatus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "auction status: %v\n", err)
		os.Exit(1)
	}
	increment, err := json.Marshal(fx.Increment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal increment: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig and make sure the tables exist
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
		os.Exit(1)
	}

	// 3) Auction row
	tag, err := pool.Exec(ctx, `
            INSERT INTO auctions (id, name, status, timer_duration_sec, timer_enabled, increment)
            VALUES ($1,$2,$3,$4,$5,$6)
            ON CONFLICT (id) DO NOTHING
        `, fx.ID, fx.Name, string(status), fx.Timer.DurationSec, fx.Timer.Enabled, increment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert auction %s: %v\n", fx.ID, err)
		os.Exit(1)
	}
	fmt.Printf("Auction seed: %s inserted=%t\n", fx.ID, tag.RowsAffected() == 1)

	// 4) Teams
	total, inserted, skipped, errs := len(fx.Teams), 0, 0, 0
	for _, t := range fx.Teams {
		tag, err := pool.Exec(ctx, `
            INSERT INTO auction_teams (id, auction_id, name, budget, roster_cap)
            VALUES ($1,$2,$3,$4,$5)
            ON CONFLICT (id) DO NOTHING
        `, t.ID, fx.ID, t.Name, t.Budget, t.RosterCap)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting team %s: %v\n", t.ID, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Teams seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)

	// 5) Items, in queue order
	total, inserted, skipped, errs = len(fx.Items), 0, 0, 0
	for i, it := range fx.Items {
		itemStatus, err := fx.ItemStatus(i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "item %s: %v\n", it.ID, err)
			errs++
			continue
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO auction_items (id, auction_id, name, role, base_price, status, queue_position)
            VALUES ($1,$2,$3,NULLIF($4, ''),$5,$6,$7)
            ON CONFLICT (id) DO NOTHING
        `, it.ID, fx.ID, it.Name, it.Role, it.BasePrice, string(itemStatus), i+1)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting item %s: %v\n", it.ID, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Items seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
