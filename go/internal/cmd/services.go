package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionroom/go/internal/auction/dispatcher"
	"github.com/mcdev12/auctionroom/go/internal/auction/gateway"
	"github.com/mcdev12/auctionroom/go/internal/auction/outbox"
	"github.com/mcdev12/auctionroom/go/internal/auction/repository"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
)

type Services struct {
	Store      *state.Store
	Dispatcher *dispatcher.Dispatcher
	Relay      *outbox.Relay
	Gateway    *gateway.Service
	Timers     *countdowns
	JetStream  *outbox.JetStreamPublisher
}

// setupServices wires store → dispatcher → relay → {gateway, JetStream,
// archive}. A nil database keeps everything in memory.
func setupServices(ctx context.Context, config *Config, database *sql.DB) (*Services, error) {
	clock := clockwork.NewRealClock()
	store := state.NewStore(clock)

	var archiver outbox.Archiver
	if database != nil {
		repo := repository.NewRepository(database)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		if err := restoreAuctions(ctx, repo, store); err != nil {
			return nil, err
		}
		archiver = repo
	} else if config.Fixture != "" {
		if err := loadFixture(config.Fixture, store); err != nil {
			return nil, err
		}
	}

	gatewayService, err := gateway.NewService(ctx, config.Gateway, gateway.NewStoreStateProvider(store))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway service: %w", err)
	}

	timers := newCountdowns(store, clock)
	publishers := []outbox.Publisher{gatewayService.Publisher(), timers}

	var js *outbox.JetStreamPublisher
	if config.JetStream.Enabled {
		js, err = outbox.NewJetStreamPublisher(ctx, config.JetStream.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		publishers = append(publishers, js)
	}

	relay := outbox.NewRelay(config.Relay, clock, archiver, publishers...)

	return &Services{
		Store:      store,
		Dispatcher: dispatcher.New(store, relay, clock),
		Relay:      relay,
		Gateway:    gatewayService,
		Timers:     timers,
		JetStream:  js,
	}, nil
}

func restoreAuctions(ctx context.Context, repo *repository.Repository, store *state.Store) error {
	ids, err := repo.ListAuctions(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		st, version, err := repo.LoadAuction(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load auction %s: %w", id, err)
		}
		if _, err := store.Restore(st, version); err != nil {
			return fmt.Errorf("failed to register auction %s: %w", id, err)
		}
	}
	log.Info().Int("auctions", len(ids)).Msg("auctions restored from database")
	return nil
}

func loadFixture(path string, store *state.Store) error {
	fx, err := repository.LoadFixture(path)
	if err != nil {
		return err
	}
	st, err := fx.State()
	if err != nil {
		return err
	}
	if _, err := store.Create(st); err != nil {
		return fmt.Errorf("failed to register fixture auction: %w", err)
	}
	return nil
}
