package broker

import (
	"time"

	"github.com/cskr/pubsub"
)

// memoryDepth is the per-subscriber buffer of the loopback bus. When a
// subscriber falls behind, publishers block on Pub rather than losing
// messages, so a loopback run is lossless.
const memoryDepth = 10000

// MemoryBus is an in-process pub/sub fabric. Every Client shares the bus,
// which makes it a zero-loss loopback backend for tests and smoke runs
// that host publishers and subscriber in one process.
type MemoryBus struct {
	ps *pubsub.PubSub
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{ps: pubsub.New(memoryDepth)}
}

// Client hands out an independent broker session on the bus, mirroring
// the one-instance-per-worker rule of the real backends.
func (b *MemoryBus) Client() *Memory {
	return &Memory{bus: b}
}

// Close tears the bus down. Clients must be disconnected first.
func (b *MemoryBus) Close() {
	b.ps.Shutdown()
}

// Memory is a single session on a MemoryBus. A session holds at most one
// subscription; subscribing to another channel moves it. The bus delivers
// bare payloads, so a session cannot demultiplex topics the way the
// networked backends do, and the benchmark only ever uses one channel.
type Memory struct {
	bus        *MemoryBus
	connected  bool
	subChannel string
	subCh      chan interface{}
	handler    MessageHandler
}

func (m *Memory) Connect() bool {
	m.connected = true
	return true
}

func (m *Memory) Publish(channel, payload string) bool {
	if !m.connected {
		return false
	}
	m.bus.ps.Pub(payload, channel)
	return true
}

// Flush is a no-op: Pub hands the message to the bus before returning.
func (m *Memory) Flush() {}

func (m *Memory) Subscribe(channel string, handler MessageHandler) bool {
	if !m.connected {
		return false
	}
	if m.subCh == nil {
		m.subCh = m.bus.ps.Sub(channel)
		m.subChannel = channel
	} else if m.subChannel != channel {
		m.bus.ps.Unsub(m.subCh)
		m.subCh = m.bus.ps.Sub(channel)
		m.subChannel = channel
	}
	m.handler = handler
	return true
}

func (m *Memory) Unsubscribe(channel string) {
	if m.subCh != nil && m.subChannel == channel {
		m.bus.ps.Unsub(m.subCh)
		m.subCh = nil
		m.subChannel = ""
		m.handler = nil
	}
}

func (m *Memory) ProcessMessages(budget time.Duration) {
	if m.subCh == nil {
		return
	}
	timer := time.NewTimer(budget)
	defer timer.Stop()
	for {
		select {
		case raw, ok := <-m.subCh:
			if !ok {
				return
			}
			if payload, ok := raw.(string); ok && m.handler != nil {
				m.handler(payload)
			}
		case <-timer.C:
			return
		}
	}
}

func (m *Memory) Disconnect() {
	if m.subCh != nil {
		m.bus.ps.Unsub(m.subCh)
		m.subCh = nil
		m.subChannel = ""
		m.handler = nil
	}
	m.connected = false
}

func (m *Memory) Name() string { return "Memory" }
