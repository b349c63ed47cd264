package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/outbox"
)

type JetStreamConsumerConfig struct {
	URL        string `yaml:"url"`
	StreamName string `yaml:"stream_name"`
	// ConsumerName is a prefix; every gateway instance gets its own durable
	// consumer so each one sees every event.
	ConsumerName string `yaml:"consumer_name"`
	// InstanceID names this gateway. A random id is used when empty.
	InstanceID        string        `yaml:"instance_id"`
	InactiveThreshold time.Duration `yaml:"inactive_threshold"`
	SubjectFilter     string        `yaml:"subject_filter"`
	MaxDeliver        int           `yaml:"max_deliver"`
	AckWait           time.Duration `yaml:"ack_wait"`
	MaxAckPending     int           `yaml:"max_ack_pending"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectWait     time.Duration `yaml:"reconnect_wait"`
}

func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		URL:               nats.DefaultURL,
		StreamName:        "AUCTION_EVENTS",
		ConsumerName:      "auction-gateway",
		InactiveThreshold: 5 * time.Minute,
		SubjectFilter:     "auction.events.>",
		MaxDeliver:        5,
		AckWait:           30 * time.Second,
		MaxAckPending:     100,
		MaxReconnects:     -1,
		ReconnectWait:     2 * time.Second,
	}
}

// consumerName is the durable name for this instance. NATS names may not
// contain '.', '*', '>' or whitespace.
func (c JetStreamConsumerConfig) consumerName() string {
	instance := c.InstanceID
	if instance == "" {
		instance = uuid.NewString()
	}
	instance = strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, instance)
	return c.ConsumerName + "-" + instance
}

// consumerConfig describes the per-instance consumer. An instance that goes
// away is cleaned up after InactiveThreshold.
func (c JetStreamConsumerConfig) consumerConfig(name string) jetstream.ConsumerConfig {
	// new subscribers pull a snapshot first, so only live events matter
	return jetstream.ConsumerConfig{
		Name:              name,
		Durable:           name,
		Description:       "Auction gateway websocket fan-out",
		FilterSubject:     c.SubjectFilter,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		MaxDeliver:        c.MaxDeliver,
		AckWait:           c.AckWait,
		MaxAckPending:     c.MaxAckPending,
		ReplayPolicy:      jetstream.ReplayInstantPolicy,
		InactiveThreshold: c.InactiveThreshold,
	}
}

// EventConsumer relays JetStream events to websocket subscribers.
type EventConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	js                jetstream.JetStream
	consumer          jetstream.Consumer
	config            JetStreamConsumerConfig
	name              string
}

func NewEventConsumer(ctx context.Context, cm *ConnectionManager, config JetStreamConsumerConfig) (*EventConsumer, error) {
	nc, err := nats.Connect(config.URL, outbox.NATSOptions(config.MaxReconnects, config.ReconnectWait)...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := &EventConsumer{
		connectionManager: cm,
		nc:                nc,
		js:                js,
		config:            config,
		name:              config.consumerName(),
	}
	if err := ec.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return ec, nil
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, ec.config.consumerConfig(ec.name))
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	log.Info().
		Str("consumer", ec.name).
		Str("stream", ec.config.StreamName).
		Msg("JetStream consumer ready")
	ec.consumer = consumer
	return nil
}

// Start consumes until ctx is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.name).
		Str("stream", ec.config.StreamName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := ec.processMessage(msg); err != nil {
				log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process message")
				// malformed payloads will never parse; terminate instead of redelivering
				if termErr := msg.Term(); termErr != nil {
					log.Error().Err(termErr).Msg("failed to TERM message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

func (ec *EventConsumer) processMessage(msg jetstream.Msg) error {
	env, err := events.Parse(msg.Data())
	if err != nil {
		return err
	}

	log.Debug().
		Str("event_id", env.EventID.String()).
		Str("auction_id", env.AuctionID.String()).
		Str("event_type", string(env.EventType)).
		Int64("sequence", env.Sequence).
		Msg("processing JetStream event")

	ec.connectionManager.Broadcast(env)
	return nil
}

func (ec *EventConsumer) Stop() error {
	log.Info().Msg("stopping event consumer")
	if ec.nc != nil {
		ec.nc.Close()
	}
	return nil
}
