// Package config resolves benchmark parameters from an optional
// .env-style file overlaid by process environment variables, keeping the
// key names the docker-compose deployment already uses.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"brokerbench/internal/broker"
)

// Config is the fully resolved parameter set shared by the three
// binaries; each consults only the fields it needs.
type Config struct {
	BrokerType string
	Channel    string

	NumPublishers   int
	PublishDuration time.Duration
	WarmupPause     time.Duration

	SubscriberID string
	StartGrace   time.Duration
	RunMargin    time.Duration

	RedisHost string
	RedisPort int
	NatsURL   string
	MqttURL   string

	BatchID     string
	OutDir      string
	MetricsPort int
}

// Load reads envFile if it exists (key=value lines, # comments), then
// lets real environment variables override. Missing keys fall back to
// the same defaults the compose deployment assumes.
func Load(envFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("BROKER_TYPE", broker.TypeRedis)
	v.SetDefault("CHANNEL_NAME", "benchmark_channel")
	v.SetDefault("NUM_PUBLISHERS", 10)
	v.SetDefault("PUBLISH_DURATION_SECONDS", 60)
	v.SetDefault("WARMUP_PAUSE_MS", 100)
	v.SetDefault("SUBSCRIBER_ID", "subscriber_1")
	v.SetDefault("START_GRACE_SECONDS", 15)
	v.SetDefault("RUN_TIMEOUT_MARGIN_SECONDS", 30)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("MQTT_URL", "tcp://localhost:1883")
	v.SetDefault("BATCH_ID", "")
	v.SetDefault("OUT_DIR", "./results")
	v.SetDefault("METRICS_PORT", 0)

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file %s: %w", envFile, err)
			}
		}
	}
	v.AutomaticEnv()

	return &Config{
		BrokerType:      v.GetString("BROKER_TYPE"),
		Channel:         v.GetString("CHANNEL_NAME"),
		NumPublishers:   v.GetInt("NUM_PUBLISHERS"),
		PublishDuration: time.Duration(v.GetInt("PUBLISH_DURATION_SECONDS")) * time.Second,
		WarmupPause:     time.Duration(v.GetInt("WARMUP_PAUSE_MS")) * time.Millisecond,
		SubscriberID:    v.GetString("SUBSCRIBER_ID"),
		StartGrace:      time.Duration(v.GetInt("START_GRACE_SECONDS")) * time.Second,
		RunMargin:       time.Duration(v.GetInt("RUN_TIMEOUT_MARGIN_SECONDS")) * time.Second,
		RedisHost:       v.GetString("REDIS_HOST"),
		RedisPort:       v.GetInt("REDIS_PORT"),
		NatsURL:         v.GetString("NATS_URL"),
		MqttURL:         v.GetString("MQTT_URL"),
		BatchID:         v.GetString("BATCH_ID"),
		OutDir:          v.GetString("OUT_DIR"),
		MetricsPort:     v.GetInt("METRICS_PORT"),
	}, nil
}

// BrokerOptions maps the resolved addresses into the broker factory's
// options, stamped with the given session client id.
func (c *Config) BrokerOptions(clientID string) broker.Options {
	return broker.Options{
		RedisHost: c.RedisHost,
		RedisPort: c.RedisPort,
		NatsURL:   c.NatsURL,
		MqttURL:   c.MqttURL,
		ClientID:  clientID,
	}
}

// Host resolves the host label stamped into result records: HOSTNAME if
// the environment provides it (containers do), the OS hostname otherwise.
func Host() string {
	if h := os.Getenv("HOSTNAME"); h != "" {
		return h
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "unknown-host"
}
