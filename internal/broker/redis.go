package broker

import (
	"fmt"
	"time"

	"github.com/go-redis/redis"
	log "github.com/sirupsen/logrus"
)

// Redis drives Redis pub/sub. Publishing goes over the main connection;
// subscriptions get their own connection because a Redis connection in
// subscribe mode cannot issue other commands.
type Redis struct {
	addr     string
	client   *redis.Client
	sub      *redis.PubSub
	handlers map[string]MessageHandler
}

func NewRedis(host string, port int) *Redis {
	return &Redis{
		addr:     fmt.Sprintf("%s:%d", host, port),
		handlers: make(map[string]MessageHandler),
	}
}

func (r *Redis) Connect() bool {
	r.client = redis.NewClient(&redis.Options{Addr: r.addr})
	if err := r.client.Ping().Err(); err != nil {
		log.WithError(err).WithField("addr", r.addr).Error("redis connect failed")
		return false
	}
	return true
}

func (r *Redis) Publish(channel, payload string) bool {
	if r.client == nil {
		return false
	}
	return r.client.Publish(channel, payload).Err() == nil
}

// Flush is a no-op: PUBLISH is issued as a synchronous command/response
// round trip, so there is nothing buffered client-side.
func (r *Redis) Flush() {}

func (r *Redis) Subscribe(channel string, handler MessageHandler) bool {
	if r.client == nil {
		return false
	}
	if r.sub == nil {
		r.sub = r.client.Subscribe(channel)
		// Wait for the subscription confirmation so that messages
		// published after this call are guaranteed to be seen.
		if _, err := r.sub.Receive(); err != nil {
			log.WithError(err).WithField("channel", channel).Error("redis subscribe failed")
			r.sub = nil
			return false
		}
	} else if _, registered := r.handlers[channel]; !registered {
		if err := r.sub.Subscribe(channel); err != nil {
			log.WithError(err).WithField("channel", channel).Error("redis subscribe failed")
			return false
		}
	}
	r.handlers[channel] = handler
	return true
}

func (r *Redis) Unsubscribe(channel string) {
	if r.sub != nil {
		_ = r.sub.Unsubscribe(channel)
	}
	delete(r.handlers, channel)
}

func (r *Redis) ProcessMessages(budget time.Duration) {
	if r.sub == nil {
		return
	}
	deadline := time.Now().Add(budget)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return
		}
		raw, err := r.sub.ReceiveTimeout(remain)
		if err != nil {
			// Timeout or a broken subscribe connection; either way
			// the caller re-enters on its next poll.
			return
		}
		if msg, ok := raw.(*redis.Message); ok {
			if handler := r.handlers[msg.Channel]; handler != nil {
				handler(msg.Payload)
			}
		}
	}
}

func (r *Redis) Disconnect() {
	if r.sub != nil {
		_ = r.sub.Close()
		r.sub = nil
	}
	if r.client != nil {
		_ = r.client.Close()
		r.client = nil
	}
}

func (r *Redis) Name() string { return "Redis" }
