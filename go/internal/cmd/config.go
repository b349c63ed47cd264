package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/auctionroom/go/internal/auction/gateway"
	"github.com/mcdev12/auctionroom/go/internal/auction/outbox"
)

type Config struct {
	Server struct {
		Port           string        `yaml:"port" validate:"required,numeric"`
		OperatorToken  string        `yaml:"operator_token"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gte=0"`
		IdleTimeout    time.Duration `yaml:"idle_timeout" validate:"gte=0"`
	} `yaml:"server"`

	// Fixture seeds the store when no database is configured.
	Fixture string `yaml:"fixture"`

	Relay     outbox.Config `yaml:"relay"`
	JetStream struct {
		Enabled bool                   `yaml:"enabled"`
		Config  outbox.JetStreamConfig `yaml:",inline"`
	} `yaml:"jetstream"`
	Gateway gateway.Config `yaml:"gateway"`
}

func defaultConfig() *Config {
	var c Config
	c.Server.Port = "8080"
	c.Server.AllowedOrigins = []string{"*"}
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.IdleTimeout = 120 * time.Second
	c.Fixture = "go/internal/assets/auction.json"
	c.Relay = outbox.DefaultConfig()
	c.JetStream.Config = outbox.DefaultJetStreamConfig()
	c.Gateway = gateway.DefaultConfig()
	return &c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file keeps the defaults.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Server.OperatorToken = getEnv("OPERATOR_TOKEN", config.Server.OperatorToken)
	config.Fixture = getEnv("AUCTION_FIXTURE", config.Fixture)
	config.JetStream.Enabled = getEnvAsBool("JETSTREAM_ENABLED", config.JetStream.Enabled)
	config.JetStream.Config.URL = getEnv("NATS_URL", config.JetStream.Config.URL)
	config.Relay.RetryDelay = getEnvAsDuration("RELAY_RETRY_DELAY", config.Relay.RetryDelay)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}
