package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/tradewind/exchange/pkg/postgresql"
	"github.com/tradewind/exchange/pkg/redis"
)

// Config represents the application configuration.
type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	Postgres     postgresql.Config  `envPrefix:"POSTGRES_"`
	Redis        redis.Config       `envPrefix:"REDIS_"`
	ChangeStream ChangeStreamConfig `envPrefix:"CHANGE_STREAM_"`
	Lanes        LanesConfig        `envPrefix:"LANE_"`
	Matching     MatchingConfig     `envPrefix:"MATCHING_"`
	Notify       NotifyConfig       `envPrefix:"NOTIFY_"`
}

// AppConfig represents the application configuration.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"settlement-engine"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HealthAddr  string `env:"HEALTH_ADDR" envDefault:":8080"`
}

// ChangeStreamConfig represents the order store change stream consumer configuration.
type ChangeStreamConfig struct {
	Brokers       []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic         string   `env:"TOPIC" envDefault:"order-events"`
	ConsumerGroup string   `env:"CONSUMER_GROUP" envDefault:"order-insert-router"`
}

// LanesConfig represents the matching lane topics and their consumer groups.
type LanesConfig struct {
	Brokers       []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	SpotTopic     string   `env:"SPOT_TOPIC" envDefault:"lane-spot"`
	FuturesTopic  string   `env:"FUTURES_TOPIC" envDefault:"lane-futures"`
	PerpTopic     string   `env:"PERP_TOPIC" envDefault:"lane-perp"`
	ConsumerGroup string   `env:"CONSUMER_GROUP" envDefault:"type-matcher"`
}

// MatchingConfig represents the match engine and dedup configuration.
type MatchingConfig struct {
	MaxWritesPerCommit int           `env:"MAX_WRITES_PER_COMMIT" envDefault:"100"`
	DedupWindow        time.Duration `env:"DEDUP_WINDOW" envDefault:"5m"`
	DedupPrefix        string        `env:"DEDUP_PREFIX" envDefault:"dedup:order:"`
}

// NotifyConfig represents the market-update broadcast configuration.
type NotifyConfig struct {
	Channel string `env:"CHANNEL" envDefault:"market-updates"`
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate fails fast on configuration the process cannot run with.
func (c *Config) Validate() error {
	if len(c.ChangeStream.Brokers) == 0 {
		return fmt.Errorf("change stream brokers cannot be empty")
	}
	if len(c.Lanes.Brokers) == 0 {
		return fmt.Errorf("lane brokers cannot be empty")
	}
	if c.Lanes.SpotTopic == "" || c.Lanes.FuturesTopic == "" || c.Lanes.PerpTopic == "" {
		return fmt.Errorf("every lane topic must be set")
	}
	if c.Matching.MaxWritesPerCommit <= 0 {
		return fmt.Errorf("max writes per commit must be positive")
	}
	if c.Matching.DedupWindow <= 0 {
		return fmt.Errorf("dedup window must be positive")
	}
	return nil
}
