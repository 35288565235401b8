package broker

import (
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Nats drives core NATS pub/sub. Subscriptions are synchronous so that
// delivery happens inside ProcessMessages on the caller's goroutine
// instead of on the client's own dispatch goroutines.
type Nats struct {
	url      string
	conn     *nats.Conn
	subs     map[string]*nats.Subscription
	handlers map[string]MessageHandler
}

func NewNats(url string) *Nats {
	return &Nats{
		url:      url,
		subs:     make(map[string]*nats.Subscription),
		handlers: make(map[string]MessageHandler),
	}
}

func (n *Nats) Connect() bool {
	conn, err := nats.Connect(n.url)
	if err != nil {
		log.WithError(err).WithField("url", n.url).Error("nats connect failed")
		return false
	}
	n.conn = conn
	return true
}

func (n *Nats) Publish(channel, payload string) bool {
	if n.conn == nil {
		return false
	}
	return n.conn.Publish(channel, []byte(payload)) == nil
}

func (n *Nats) Flush() {
	if n.conn != nil {
		_ = n.conn.Flush()
	}
}

func (n *Nats) Subscribe(channel string, handler MessageHandler) bool {
	if n.conn == nil {
		return false
	}
	if _, registered := n.subs[channel]; !registered {
		sub, err := n.conn.SubscribeSync(channel)
		if err != nil {
			log.WithError(err).WithField("channel", channel).Error("nats subscribe failed")
			return false
		}
		n.subs[channel] = sub
		// Make sure the server saw the subscription before the caller
		// assumes messages will be captured.
		_ = n.conn.Flush()
	}
	n.handlers[channel] = handler
	return true
}

func (n *Nats) Unsubscribe(channel string) {
	if sub, ok := n.subs[channel]; ok {
		_ = sub.Unsubscribe()
		delete(n.subs, channel)
	}
	delete(n.handlers, channel)
}

func (n *Nats) ProcessMessages(budget time.Duration) {
	deadline := time.Now().Add(budget)
	for channel, sub := range n.subs {
		handler := n.handlers[channel]
		for {
			remain := time.Until(deadline)
			if remain <= 0 {
				return
			}
			msg, err := sub.NextMsg(remain)
			if err != nil {
				if !errors.Is(err, nats.ErrTimeout) {
					log.WithError(err).Debug("nats receive failed")
				}
				break
			}
			if handler != nil {
				handler(string(msg.Data))
			}
		}
	}
}

func (n *Nats) Disconnect() {
	for channel, sub := range n.subs {
		_ = sub.Unsubscribe()
		delete(n.subs, channel)
	}
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
}

func (n *Nats) Name() string { return "NATS" }
