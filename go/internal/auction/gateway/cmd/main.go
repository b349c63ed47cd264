package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/auctionroom/go/internal/auction/gateway"
	"github.com/mcdev12/auctionroom/go/internal/auction/service"
)

// A standalone gateway fans JetStream events out to websocket viewers and
// answers snapshot requests by asking the authority over RPC.
func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Get configuration
	port := getEnv("GATEWAY_PORT", "8081")
	authorityURL := getEnv("AUTHORITY_URL", "http://localhost:8080")

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ConsumeJetStream = true
	gatewayConfig.JetStreamConfig.URL = getEnv("NATS_URL", gatewayConfig.JetStreamConfig.URL)
	gatewayConfig.JetStreamConfig.ConsumerName = getEnv("GATEWAY_CONSUMER", gatewayConfig.JetStreamConfig.ConsumerName)
	gatewayConfig.JetStreamConfig.InstanceID = getEnv("GATEWAY_INSTANCE_ID", "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	stateProvider := service.NewClient(httpClient, authorityURL, "")

	gatewayService, err := gateway.NewService(ctx, gatewayConfig, stateProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", port),
		Handler:     cors.AllowAll().Handler(mux),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	log.Info().
		Str("authority_url", authorityURL).
		Str("nats_url", gatewayConfig.JetStreamConfig.URL).
		Str("port", port).
		Msg("starting auction gateway")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gatewayService.Start(gctx)
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("auction gateway failed")
	}
	log.Info().Msg("auction gateway shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
