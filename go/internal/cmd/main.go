package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/auctionroom/go/internal/dbconfig"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if getEnvAsBool("DEBUG", false) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var database *sql.DB
	if dbconfig.Enabled() {
		database, err = setupDatabase(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to setup database")
		}
		defer database.Close()
	}

	services, err := setupServices(ctx, config, database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}
	if services.JetStream != nil {
		defer services.JetStream.Close()
	}

	server := setupServer(config, services)

	log.Info().
		Str("addr", server.Addr).
		Int("auctions", len(services.Store.List())).
		Bool("database", database != nil).
		Bool("jetstream", services.JetStream != nil).
		Bool("operator_auth", config.Server.OperatorToken != "").
		Msg("starting auction authority")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := services.Relay.Start(gctx); err != nil {
			return err
		}
		services.Relay.Wait()
		return nil
	})
	g.Go(func() error {
		return services.Gateway.Start(gctx)
	})
	g.Go(func() error {
		services.Timers.Start(gctx)
		return nil
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("auction authority stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("auction authority shutdown complete")
}
