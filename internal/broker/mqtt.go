package broker

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// inboxDepth bounds the bridge between paho's push delivery and the
// pull-style ProcessMessages. A full inbox drops the incoming message;
// the drop shows up as delivery loss, which is an observed metric here,
// not an error.
const inboxDepth = 100000

type inbound struct {
	topic   string
	payload string
}

// Mqtt drives an MQTT broker through the paho client. Paho delivers
// messages on its own goroutines, so the subscribe handler only enqueues
// into inbox; ProcessMessages drains it on the caller's goroutine.
type Mqtt struct {
	url      string
	clientID string
	client   mqtt.Client
	inbox    chan inbound
	handlers map[string]MessageHandler
}

func NewMqtt(url, clientID string) *Mqtt {
	return &Mqtt{
		url:      url,
		clientID: clientID,
		inbox:    make(chan inbound, inboxDepth),
		handlers: make(map[string]MessageHandler),
	}
}

func (m *Mqtt) Connect() bool {
	opts := mqtt.NewClientOptions().
		AddBroker(m.url).
		SetClientID(m.clientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectTimeout(10 * time.Second).
		SetKeepAlive(30 * time.Second)
	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		log.WithError(token.Error()).WithField("url", m.url).Error("mqtt connect failed")
		return false
	}
	return true
}

func (m *Mqtt) Publish(channel, payload string) bool {
	if m.client == nil || !m.client.IsConnected() {
		return false
	}
	// QoS 0 fire-and-forget; the token completes as soon as the packet
	// is queued on the network writer.
	m.client.Publish(channel, 0, false, []byte(payload))
	return true
}

// Flush is a no-op: paho exposes no write barrier, and at QoS 0 the
// packet is already on the writer goroutine's queue when Publish returns.
func (m *Mqtt) Flush() {}

func (m *Mqtt) Subscribe(channel string, handler MessageHandler) bool {
	if m.client == nil {
		return false
	}
	if _, registered := m.handlers[channel]; !registered {
		token := m.client.Subscribe(channel, 0, func(_ mqtt.Client, msg mqtt.Message) {
			select {
			case m.inbox <- inbound{topic: msg.Topic(), payload: string(msg.Payload())}:
			default:
				// Inbox overflow, message dropped.
			}
		})
		if !token.WaitTimeout(10*time.Second) || token.Error() != nil {
			log.WithError(token.Error()).WithField("channel", channel).Error("mqtt subscribe failed")
			return false
		}
	}
	m.handlers[channel] = handler
	return true
}

func (m *Mqtt) Unsubscribe(channel string) {
	if m.client != nil {
		m.client.Unsubscribe(channel)
	}
	delete(m.handlers, channel)
}

func (m *Mqtt) ProcessMessages(budget time.Duration) {
	timer := time.NewTimer(budget)
	defer timer.Stop()
	for {
		select {
		case in := <-m.inbox:
			if handler := m.handlers[in.topic]; handler != nil {
				handler(in.payload)
			}
		case <-timer.C:
			return
		}
	}
}

func (m *Mqtt) Disconnect() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}
	m.client = nil
}

func (m *Mqtt) Name() string { return "MQTT" }
