package bench

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"brokerbench/internal/broker"
	"brokerbench/internal/metrics"
	"brokerbench/internal/results"
)

// Defaults for the subscriber liveness rules.
const (
	// DefaultStartGrace bounds the wait for a start sentinel after
	// subscribing. Expiry force-finalizes with a degenerate window:
	// "no benchmark ever started" is a valid result, a hang is not.
	DefaultStartGrace = 15 * time.Second

	// DefaultRunMargin pads the expected publish duration before a
	// missing end sentinel force-finalizes the window. Bounds the damage
	// of a crashed or hung leader publisher.
	DefaultRunMargin = 30 * time.Second

	// DefaultPollBudget is the bound on a single ProcessMessages call,
	// and therefore on worst-case loop responsiveness.
	DefaultPollBudget = 100 * time.Millisecond
)

// SubscriberConfig tunes one subscriber instance.
type SubscriberConfig struct {
	SubscriberID string
	Channel      string

	// ExpectedDuration is how long the publishers intend to run; with
	// RunMargin it caps how long Measuring may last without an end
	// sentinel.
	ExpectedDuration time.Duration

	StartGrace time.Duration
	RunMargin  time.Duration
	PollBudget time.Duration

	// KeepAlive keeps the receive loop running after the result has been
	// reported, the way the long-lived container deployment expects.
	// When false, Run returns right after reporting.
	KeepAlive bool
}

func (c SubscriberConfig) withDefaults() SubscriberConfig {
	if c.StartGrace <= 0 {
		c.StartGrace = DefaultStartGrace
	}
	if c.RunMargin <= 0 {
		c.RunMargin = DefaultRunMargin
	}
	if c.PollBudget <= 0 {
		c.PollBudget = DefaultPollBudget
	}
	return c
}

// SubscriberDriver consumes the sentinel pair to open and close its
// measurement window and counts the payload messages strictly inside it.
//
// The driver is a single-threaded cooperative loop: one goroutine
// alternates between a bounded ProcessMessages call and latch checks.
// Backends deliver handler callbacks on that same goroutine; the received
// counter is atomic anyway so a backend that ever violates this only
// costs accuracy of interleaving, not memory safety.
type SubscriberDriver struct {
	cfg    SubscriberConfig
	b      broker.MessageBroker
	rec    metrics.Recorder
	report func(results.RunStats)

	mu      sync.Mutex
	started bool
	ended   bool
	startAt time.Time
	endAt   time.Time

	received uint64
	reported bool
}

// NewSubscriber wires a subscriber driver. report, if non-nil, fires
// exactly once when the window finalizes.
func NewSubscriber(cfg SubscriberConfig, b broker.MessageBroker, rec metrics.Recorder, report func(results.RunStats)) *SubscriberDriver {
	if rec == nil {
		rec = metrics.Nop()
	}
	return &SubscriberDriver{cfg: cfg.withDefaults(), b: b, rec: rec, report: report}
}

// Run connects, subscribes and drives the receive loop until the context
// is cancelled or, when KeepAlive is off, until the result has been
// reported. The timeout rules guarantee the result is always produced,
// sentinels or not.
func (d *SubscriberDriver) Run(ctx context.Context) (results.RunStats, error) {
	if !d.b.Connect() {
		return results.RunStats{}, fmt.Errorf("subscriber %s: connect to %s failed", d.cfg.SubscriberID, d.b.Name())
	}
	defer d.b.Disconnect()

	if !d.b.Subscribe(d.cfg.Channel, d.onMessage) {
		return results.RunStats{}, fmt.Errorf("subscriber %s: subscribe to %q failed", d.cfg.SubscriberID, d.cfg.Channel)
	}
	log.WithFields(log.Fields{
		"subscriber": d.cfg.SubscriberID,
		"channel":    d.cfg.Channel,
		"broker":     d.b.Name(),
	}).Info("subscribed, waiting for start sentinel")

	graceDeadline := time.Now().Add(d.cfg.StartGrace)

	for {
		d.b.ProcessMessages(d.cfg.PollBudget)
		d.applyTimeouts(graceDeadline)

		if d.finalized() && !d.reported {
			stats := d.Stats()
			if d.report != nil {
				d.report(stats)
			}
			d.reported = true
			log.WithFields(log.Fields{
				"subscriber": stats.SubscriberID,
				"received":   stats.Received,
				"duration":   stats.Duration,
				"throughput": stats.Throughput(),
			}).Info("window finalized")
			if !d.cfg.KeepAlive {
				return stats, nil
			}
		}

		select {
		case <-ctx.Done():
			return d.Stats(), ctx.Err()
		default:
		}
	}
}

// onMessage classifies each delivery and advances the window latches.
// Both latches are idempotent: duplicate or out-of-order sentinels are
// protocol anomalies to ignore, not errors to surface.
func (d *SubscriberDriver) onMessage(payload string) {
	switch broker.Classify(payload) {
	case broker.Start:
		d.mu.Lock()
		if !d.started {
			d.started = true
			d.startAt = time.Now()
			log.WithField("subscriber", d.cfg.SubscriberID).Info("start sentinel received")
		}
		d.mu.Unlock()
	case broker.End:
		d.mu.Lock()
		if d.started && !d.ended {
			d.ended = true
			d.endAt = time.Now()
			log.WithField("subscriber", d.cfg.SubscriberID).Info("end sentinel received")
		}
		d.mu.Unlock()
	default:
		d.mu.Lock()
		counting := d.started && !d.ended
		d.mu.Unlock()
		if counting {
			atomic.AddUint64(&d.received, 1)
			d.rec.MessageReceived()
		}
	}
}

// applyTimeouts force-finalizes the window when the sentinel that should
// have moved it on never arrived.
func (d *SubscriberDriver) applyTimeouts(graceDeadline time.Time) {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		if now.After(graceDeadline) {
			// Degenerate zero-length window: reports received=0
			// instead of hanging forever.
			d.started, d.ended = true, true
			d.startAt, d.endAt = now, now
			log.WithField("subscriber", d.cfg.SubscriberID).
				Warn("no start sentinel within grace period, finalizing empty window")
		}
		return
	}
	if !d.ended && now.After(d.startAt.Add(d.cfg.ExpectedDuration+d.cfg.RunMargin)) {
		d.ended = true
		d.endAt = now
		log.WithField("subscriber", d.cfg.SubscriberID).
			Warn("no end sentinel within run timeout, finalizing window now")
	}
}

func (d *SubscriberDriver) finalized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ended
}

// Stats snapshots the current run stats. Before the window is open the
// duration is zero; once finalized the value is stable.
func (d *SubscriberDriver) Stats() results.RunStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	var duration time.Duration
	if d.started && d.ended {
		duration = d.endAt.Sub(d.startAt)
		if duration < 0 {
			duration = 0
		}
	}
	return results.RunStats{
		SubscriberID: d.cfg.SubscriberID,
		Received:     atomic.LoadUint64(&d.received),
		Duration:     duration,
	}
}
