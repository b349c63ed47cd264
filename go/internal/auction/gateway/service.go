package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Service wires the websocket fan-out, the optional JetStream consumer and
// the snapshot endpoints.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
	stateHandler      *StateHandler
}

type Config struct {
	ConnectionConfig ConnectionConfig        `yaml:"connection"`
	JetStreamConfig  JetStreamConsumerConfig `yaml:"jetstream"`
	// ConsumeJetStream subscribes to the event stream instead of relying
	// solely on a LocalPublisher.
	ConsumeJetStream bool `yaml:"consume_jetstream"`
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

func NewService(ctx context.Context, config Config, stateProvider StateProvider) (*Service, error) {
	if config.ConnectionConfig.CheckOrigin == nil {
		config.ConnectionConfig.CheckOrigin = DefaultConnectionConfig().CheckOrigin
	}
	connectionManager, err := NewConnectionManager(config.ConnectionConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection manager: %w", err)
	}

	s := &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(stateProvider),
	}
	if config.ConsumeJetStream {
		s.eventConsumer, err = NewEventConsumer(ctx, connectionManager, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("create event consumer: %w", err)
		}
	}
	return s, nil
}

// Start runs until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("jetstream", s.eventConsumer != nil).Msg("starting auction gateway service")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.connectionManager.Start(ctx)
		return nil
	})
	if s.eventConsumer != nil {
		g.Go(func() error {
			return s.eventConsumer.Start(ctx)
		})
	}

	err := g.Wait()
	if s.eventConsumer != nil {
		if stopErr := s.eventConsumer.Stop(); stopErr != nil {
			log.Error().Err(stopErr).Msg("failed to stop event consumer")
		}
	}
	log.Info().Msg("auction gateway service stopped")
	return err
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("auction gateway routes registered")
}

// Publisher returns an outbox publisher feeding this gateway's subscribers.
func (s *Service) Publisher() *LocalPublisher {
	return NewLocalPublisher(s.connectionManager)
}

func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}
