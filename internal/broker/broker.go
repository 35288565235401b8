// Package broker defines the capability contract a message broker backend
// must satisfy to be driven by the benchmark, plus one implementation per
// supported backend. The benchmark drivers depend only on the MessageBroker
// interface, never on a concrete backend.
package broker

import "time"

// Reserved payloads that delimit a benchmark window on the shared channel.
// The leader publisher emits them; subscribers latch their measurement
// window on first sight of each.
const (
	StartSentinel = "START_BENCHMARK"
	EndSentinel   = "END_BENCHMARK"
)

// Kind is the classification of a received payload.
type Kind int

const (
	// Payload is any message that is not a control sentinel.
	Payload Kind = iota
	// Start marks the opening of the measurement window.
	Start
	// End marks the close of the measurement window.
	End
)

// Classify tags a received payload. This is the only place sentinel values
// are compared; everything above it works with the Kind tag.
func Classify(payload string) Kind {
	switch payload {
	case StartSentinel:
		return Start
	case EndSentinel:
		return End
	default:
		return Payload
	}
}

// MessageHandler is invoked once per message delivered on a subscribed
// channel, sentinel or payload alike.
type MessageHandler func(payload string)

// MessageBroker is the contract every backend implements.
//
// Connections are not safe for concurrent use: a driver publishing from
// multiple workers must give each worker its own instance.
type MessageBroker interface {
	// Connect establishes a session. Failure is reported, not panicked.
	Connect() bool

	// Publish is a best-effort send. False means the message was not
	// handed to the broker; nothing is assumed about delivery on true.
	Publish(channel, payload string) bool

	// Flush blocks until previously issued publishes are transmitted.
	// Mandatory immediately after publishing a sentinel.
	Flush()

	// Subscribe registers handler for channel. Subscribing twice on the
	// same channel replaces the handler.
	Subscribe(channel string, handler MessageHandler) bool

	// Unsubscribe removes the registration for channel, if any.
	Unsubscribe(channel string)

	// ProcessMessages drives delivery of zero or more messages to
	// registered handlers, returning once budget elapses. This is the
	// subscriber's only suspension point.
	ProcessMessages(budget time.Duration)

	// Disconnect releases the session. Safe to call more than once.
	Disconnect()

	// Name identifies the backend for logs and result records.
	Name() string
}
