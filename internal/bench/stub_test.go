package bench

import (
	"sync"
	"time"

	"brokerbench/internal/broker"
)

// stubBroker is a scriptable in-memory backend for driver tests: queued
// messages are handed to the subscribe handler on the next
// ProcessMessages call, and publishes are tallied. Payloads are counted
// rather than stored because the publish loop produces them by the
// million; only sentinels and the first/last payload are kept.
type stubBroker struct {
	mu        sync.Mutex
	connectOK bool
	publishOK bool

	queue   []string
	handler broker.MessageHandler

	payloadCount uint64
	sentinels    []string
	first, last  string
	flushes      int
}

func newStubBroker() *stubBroker {
	return &stubBroker{connectOK: true, publishOK: true}
}

func (s *stubBroker) deliver(payloads ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, payloads...)
}

func (s *stubBroker) Connect() bool { return s.connectOK }

func (s *stubBroker) Publish(_, payload string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.publishOK {
		return false
	}
	if broker.Classify(payload) == broker.Payload {
		s.payloadCount++
	} else {
		s.sentinels = append(s.sentinels, payload)
	}
	if s.first == "" {
		s.first = payload
	}
	s.last = payload
	return true
}

func (s *stubBroker) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
}

func (s *stubBroker) Subscribe(_ string, handler broker.MessageHandler) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
	return true
}

func (s *stubBroker) Unsubscribe(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = nil
}

func (s *stubBroker) ProcessMessages(budget time.Duration) {
	s.mu.Lock()
	pending := s.queue
	s.queue = nil
	handler := s.handler
	s.mu.Unlock()

	if len(pending) == 0 {
		// Nothing buffered; burn the budget like a blocked receive.
		time.Sleep(budget)
		return
	}
	for _, payload := range pending {
		if handler != nil {
			handler(payload)
		}
	}
}

func (s *stubBroker) Disconnect() {}

func (s *stubBroker) Name() string { return "Stub" }

func (s *stubBroker) snapshot() (sentinels []string, payloads uint64, first, last string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sentinels...), s.payloadCount, s.first, s.last
}
