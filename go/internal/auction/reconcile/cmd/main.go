package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/auctionroom/go/internal/auction/analytics"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/reconcile"
	"github.com/mcdev12/auctionroom/go/internal/auction/service"
	"github.com/mcdev12/auctionroom/go/internal/auction/state"
)

type viewerConfig struct {
	AuthorityURL string           `yaml:"authority_url" validate:"required,url"`
	Reconcile    reconcile.Config `yaml:"reconcile"`
	Analytics    analytics.Config `yaml:"analytics"`
}

func loadConfig(path string) (*viewerConfig, error) {
	file := struct {
		Viewer viewerConfig `yaml:"viewer"`
	}{Viewer: viewerConfig{
		AuthorityURL: "http://localhost:8080",
		Reconcile:    reconcile.DefaultConfig(),
		Analytics:    analytics.DefaultConfig(),
	}}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &file.Viewer
	cfg.AuthorityURL = getEnv("AUTHORITY_URL", cfg.AuthorityURL)
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	viewerID := getEnv("VIEWER_ID", "viewer-"+uuid.NewString()[:8])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	client := service.NewClient(httpClient, cfg.AuthorityURL, "")

	auctionID, err := pickAuction(ctx, client, getEnv("AUCTION_ID", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to pick auction")
	}

	var source reconcile.SnapshotSource = client
	if getEnv("SNAPSHOT_SOURCE", "rpc") == "rest" {
		source = reconcile.NewHTTPSnapshotSource(cfg.AuthorityURL, httpClient)
	}

	clock := clockwork.NewRealClock()
	observer := analytics.NewObserver(cfg.Analytics, clock, nil)

	manager, err := reconcile.NewManager(
		auctionID,
		cfg.Reconcile,
		reconcile.NewWebSocketTransport(cfg.AuthorityURL, viewerID),
		source,
		reconcile.WithClock(clock),
		reconcile.OnEvent(func(env events.Envelope) {
			observer.Observe(env)
		}),
		reconcile.OnUpdate(viewLogger()),
		reconcile.OnStateChange(func(s reconcile.ConnState) {
			log.Info().Str("state", s.String()).Msg("connection")
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create reconcile manager")
	}

	log.Info().
		Str("authority", cfg.AuthorityURL).
		Str("auction_id", auctionID.String()).
		Str("viewer_id", viewerID).
		Msg("starting auction viewer")

	if err := manager.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect")
	}

	done := manager.Done()
	for {
		select {
		case <-done:
			if ctx.Err() != nil {
				done = nil
				continue
			}
			log.Error().Err(manager.Err()).Msg("event feed abandoned, starting a new session")
			if err := manager.Connect(ctx); err != nil {
				log.Fatal().Err(err).Msg("failed to reconnect")
			}
			done = manager.Done()
		case <-ctx.Done():
			if err := manager.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close manager")
			}
			log.Info().Msg("auction viewer stopped")
			return
		case e := <-manager.Timer().Elapsed():
			log.Info().Str("item_id", e.ItemID.String()).Msg("time's up")
		}
	}
}

func pickAuction(ctx context.Context, client *service.Client, raw string) (uuid.UUID, error) {
	if raw != "" {
		return uuid.Parse(raw)
	}
	ids, err := client.ListAuctions(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if len(ids) == 0 {
		return uuid.Nil, fmt.Errorf("authority has no auctions")
	}
	return ids[0], nil
}

// viewLogger logs the local view whenever its version moves.
func viewLogger() func(state.Snapshot) {
	var last int64 = -1
	return func(view state.Snapshot) {
		if view.Version == last {
			return
		}
		last = view.Version

		ev := log.Info().
			Int64("version", view.Version).
			Str("status", string(view.Status)).
			Int("available", view.Breakdown.Available).
			Int("sold", view.Breakdown.Sold)
		if view.CurrentItem != nil {
			ev = ev.Str("item", view.CurrentItem.Name).
				Int64("current_bid", view.CurrentBid).
				Int64("next_bid", view.NextBid)
		}
		if view.TimerSecondsRemaining != nil {
			ev = ev.Int("seconds_left", *view.TimerSecondsRemaining)
		}
		ev.Msg("auction")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
