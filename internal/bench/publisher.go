// Package bench contains the benchmark drivers: the concurrent publisher
// workers that flood a channel between a sentinel pair, and the
// subscriber loop that measures what arrives inside that window.
package bench

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"brokerbench/internal/broker"
	"brokerbench/internal/metrics"
	"brokerbench/internal/results"
)

// BrokerFactory builds one broker session per worker. Broker sessions are
// not safe for concurrent use, so every worker gets its own; returning
// nil marks the worker as unable to connect.
type BrokerFactory func(workerID int) broker.MessageBroker

// PublisherConfig tunes a publishing run.
type PublisherConfig struct {
	// Workers is the number of concurrent publishing workers, min 1.
	Workers int

	// Duration is the wall-clock publishing window per worker.
	Duration time.Duration

	// Channel all sentinels and payload travel on.
	Channel string

	// WarmupPause holds workers back briefly after the start sentinel so
	// subscribers latch the window open before the flood begins. A
	// measurement-accuracy bias, not correctness-critical.
	WarmupPause time.Duration
}

// PublisherDriver runs N workers against a broker and emits the sentinel
// pair exactly once, from worker 0 (the leader).
type PublisherDriver struct {
	cfg     PublisherConfig
	factory BrokerFactory
	rec     metrics.Recorder
}

func NewPublisher(cfg PublisherConfig, factory BrokerFactory, rec metrics.Recorder) *PublisherDriver {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if rec == nil {
		rec = metrics.Nop()
	}
	return &PublisherDriver{cfg: cfg, factory: factory, rec: rec}
}

// Run executes the publishing run and blocks until every worker has
// joined. A worker that cannot connect logs and sits the run out; the
// remaining workers carry on.
func (d *PublisherDriver) Run() results.PublisherStats {
	workers := d.cfg.Workers
	launchedAt := time.Now()
	deadline := launchedAt.Add(d.cfg.Duration)

	// Workers hold at the gate until the leader has put the start
	// sentinel on the wire (or given up connecting).
	gate := make(chan struct{})
	var gateOnce sync.Once
	openGate := func() { gateOnce.Do(func() { close(gate) }) }

	// Sentinel emission instants, written only by the leader and read
	// after the join; the mutex is for memory visibility, not contention.
	var stampMu sync.Mutex
	var firstAt, lastAt time.Time

	published := make([]uint64, workers)
	failed := make([]uint64, workers)

	// The leader may only emit the end sentinel once every worker has
	// issued all of its payload traffic.
	var drained sync.WaitGroup
	drained.Add(workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			leader := id == 0

			b := d.factory(id)
			if b == nil || !b.Connect() {
				log.WithField("worker", id).Warn("worker could not connect, sitting the run out")
				if leader {
					openGate()
				}
				drained.Done()
				return
			}
			defer b.Disconnect()

			if leader {
				if b.Publish(d.cfg.Channel, broker.StartSentinel) {
					b.Flush()
					stampMu.Lock()
					firstAt = time.Now()
					stampMu.Unlock()
				} else {
					log.WithField("worker", id).Warn("start sentinel publish failed")
				}
				if d.cfg.WarmupPause > 0 {
					time.Sleep(d.cfg.WarmupPause)
				}
				openGate()
			} else {
				<-gate
			}

			var seq, ok, lost uint64
			for time.Now().Before(deadline) {
				payload := fmt.Sprintf("msg_%d_%d", id, seq)
				seq++
				if b.Publish(d.cfg.Channel, payload) {
					ok++
					d.rec.MessagePublished()
				} else {
					// Loss is an observed metric, not an error; no retry.
					lost++
					d.rec.PublishFailed()
				}
			}
			b.Flush()
			published[id] = ok
			failed[id] = lost
			drained.Done()

			if leader {
				drained.Wait()
				if b.Publish(d.cfg.Channel, broker.EndSentinel) {
					b.Flush()
					stampMu.Lock()
					lastAt = time.Now()
					stampMu.Unlock()
				} else {
					log.WithField("worker", id).Warn("end sentinel publish failed")
				}
			}
		}(i)
	}
	wg.Wait()

	stats := results.PublisherStats{
		Workers:  workers,
		Duration: time.Since(launchedAt),
	}
	for i := 0; i < workers; i++ {
		stats.Published += published[i]
		stats.Failed += failed[i]
	}
	stampMu.Lock()
	stats.FirstSentinelAt = firstAt
	stats.LastSentinelAt = lastAt
	stampMu.Unlock()

	log.WithFields(log.Fields{
		"workers":    stats.Workers,
		"published":  stats.Published,
		"failed":     stats.Failed,
		"duration":   stats.Duration,
		"throughput": stats.Throughput(),
	}).Info("publishing run complete")
	return stats
}
