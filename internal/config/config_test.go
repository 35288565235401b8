package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.BrokerType)
	assert.Equal(t, "benchmark_channel", cfg.Channel)
	assert.Equal(t, 10, cfg.NumPublishers)
	assert.Equal(t, 60*time.Second, cfg.PublishDuration)
	assert.Equal(t, 100*time.Millisecond, cfg.WarmupPause)
	assert.Equal(t, "subscriber_1", cfg.SubscriberID)
	assert.Equal(t, 15*time.Second, cfg.StartGrace)
	assert.Equal(t, 30*time.Second, cfg.RunMargin)
	assert.Equal(t, "localhost", cfg.RedisHost)
	assert.Equal(t, 6379, cfg.RedisPort)
	assert.Equal(t, "nats://localhost:4222", cfg.NatsURL)
	assert.Equal(t, "tcp://localhost:1883", cfg.MqttURL)
	assert.Empty(t, cfg.BatchID)
	assert.Equal(t, "./results", cfg.OutDir)
	assert.Zero(t, cfg.MetricsPort)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "no-such.env"))
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.BrokerType)
	assert.Equal(t, 10, cfg.NumPublishers)
}

func TestLoadEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "bench.env")
	content := `# benchmark run parameters
BROKER_TYPE=nats
CHANNEL_NAME=bench_nats
NUM_PUBLISHERS=4
PUBLISH_DURATION_SECONDS=5
NATS_URL=nats://broker:4222
BATCH_ID=batch-42
OUT_DIR=/data/results
METRICS_PORT=9091
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "nats", cfg.BrokerType)
	assert.Equal(t, "bench_nats", cfg.Channel)
	assert.Equal(t, 4, cfg.NumPublishers)
	assert.Equal(t, 5*time.Second, cfg.PublishDuration)
	assert.Equal(t, "nats://broker:4222", cfg.NatsURL)
	assert.Equal(t, "batch-42", cfg.BatchID)
	assert.Equal(t, "/data/results", cfg.OutDir)
	assert.Equal(t, 9091, cfg.MetricsPort)

	// keys the file omits keep their defaults
	assert.Equal(t, "localhost", cfg.RedisHost)
	assert.Equal(t, 30*time.Second, cfg.RunMargin)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "bench.env")
	require.NoError(t, os.WriteFile(envFile, []byte("BROKER_TYPE=nats\nREDIS_PORT=6380\n"), 0o644))

	t.Setenv("BROKER_TYPE", "mqtt")
	t.Setenv("SUBSCRIBER_ID", "subscriber_7")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "mqtt", cfg.BrokerType)
	assert.Equal(t, "subscriber_7", cfg.SubscriberID)
	assert.Equal(t, 6380, cfg.RedisPort, "file values survive when the environment is silent")
}

func TestBrokerOptions(t *testing.T) {
	cfg := &Config{
		RedisHost: "redis",
		RedisPort: 6379,
		NatsURL:   "nats://nats:4222",
		MqttURL:   "tcp://mosquitto:1883",
	}
	opts := cfg.BrokerOptions("pub-1-0")
	assert.Equal(t, "redis", opts.RedisHost)
	assert.Equal(t, 6379, opts.RedisPort)
	assert.Equal(t, "nats://nats:4222", opts.NatsURL)
	assert.Equal(t, "tcp://mosquitto:1883", opts.MqttURL)
	assert.Equal(t, "pub-1-0", opts.ClientID)
}

func TestHostPrefersHostnameEnv(t *testing.T) {
	t.Setenv("HOSTNAME", "bench-node-3")
	assert.Equal(t, "bench-node-3", Host())
}
