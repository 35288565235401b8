package broker

import (
	"fmt"
	"sync"
)

// Options carries backend addresses. Only the fields for the selected
// backend are consulted.
type Options struct {
	RedisHost string
	RedisPort int
	NatsURL   string
	MqttURL   string

	// ClientID names the session on backends that require one (MQTT).
	ClientID string
}

// Supported broker type selectors.
const (
	TypeRedis  = "redis"
	TypeNats   = "nats"
	TypeMqtt   = "mqtt"
	TypeMemory = "memory"
)

var (
	defaultBusOnce sync.Once
	defaultBus     *MemoryBus
)

// New builds a broker client for brokerType. The "memory" type hands out
// clients of a process-wide loopback bus, useful for smoke runs where
// publisher and subscriber share a process.
func New(brokerType string, opts Options) (MessageBroker, error) {
	switch brokerType {
	case TypeRedis:
		return NewRedis(opts.RedisHost, opts.RedisPort), nil
	case TypeNats:
		return NewNats(opts.NatsURL), nil
	case TypeMqtt:
		return NewMqtt(opts.MqttURL, opts.ClientID), nil
	case TypeMemory:
		defaultBusOnce.Do(func() {
			defaultBus = NewMemoryBus()
		})
		return defaultBus.Client(), nil
	default:
		return nil, fmt.Errorf("unknown broker type %q", brokerType)
	}
}
