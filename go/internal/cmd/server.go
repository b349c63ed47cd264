package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/auctionroom/go/internal/auction/service"
)

func setupServer(config *Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: config.Server.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	// Command RPC
	path, handler := service.NewHandler(services.Dispatcher, service.HandlerConfig{
		OperatorToken: config.Server.OperatorToken,
	})
	mux.Handle(path, handler)

	// Event feed and snapshot endpoints
	services.Gateway.RegisterRoutes(mux)

	setupHealthCheck(mux, services)

	// Wrap with CORS
	wrapped := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:        fmt.Sprintf(":%s", config.Server.Port),
		Handler:     h2c.NewHandler(wrapped, &http2.Server{}),
		ReadTimeout: config.Server.ReadTimeout,
		IdleTimeout: config.Server.IdleTimeout,
	}
}

func setupHealthCheck(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"service":     "auction-authority",
			"auctions":    len(services.Store.List()),
			"connections": services.Gateway.Stats().TotalConnections,
			"relay":       services.Relay.Stats(),
		}); err != nil {
			log.Error().Err(err).Msg("failed to write info response")
		}
	})
}
