// Package metrics exposes benchmark counters over Prometheus. The
// drivers report through the Recorder interface so they stay usable
// without a metrics endpoint (and in tests).
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Recorder receives per-message events from the drivers, plus the final
// throughput once a run is summarized.
type Recorder interface {
	MessagePublished()
	PublishFailed()
	MessageReceived()
	ReportThroughput(msgPerSec float64)
}

type nopRecorder struct{}

func (nopRecorder) MessagePublished()        {}
func (nopRecorder) PublishFailed()           {}
func (nopRecorder) MessageReceived()         {}
func (nopRecorder) ReportThroughput(float64) {}

// Nop returns a recorder that discards everything.
func Nop() Recorder { return nopRecorder{} }

// PromRecorder counts message events in Prometheus counters labelled by
// role ("publisher" or "subscriber").
type PromRecorder struct {
	published  prometheus.Counter
	failed     prometheus.Counter
	received   prometheus.Counter
	throughput prometheus.Gauge
}

func NewPromRecorder(reg prometheus.Registerer, role string) *PromRecorder {
	r := &PromRecorder{
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "brokerbench_messages_published_total",
			Help:        "Total messages successfully handed to the broker",
			ConstLabels: prometheus.Labels{"role": role},
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "brokerbench_publish_errors_total",
			Help:        "Total publish calls that failed",
			ConstLabels: prometheus.Labels{"role": role},
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "brokerbench_messages_received_total",
			Help:        "Total payload messages counted inside the window",
			ConstLabels: prometheus.Labels{"role": role},
		}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "brokerbench_throughput_msg_per_sec",
			Help:        "Throughput of the most recently summarized run",
			ConstLabels: prometheus.Labels{"role": role},
		}),
	}
	reg.MustRegister(r.published, r.failed, r.received, r.throughput)
	return r
}

func (r *PromRecorder) MessagePublished() { r.published.Inc() }
func (r *PromRecorder) PublishFailed()    { r.failed.Inc() }
func (r *PromRecorder) MessageReceived()  { r.received.Inc() }

func (r *PromRecorder) ReportThroughput(msgPerSec float64) { r.throughput.Set(msgPerSec) }

// Serve exposes /metrics on the given port. Runs until the listener
// fails; callers start it on its own goroutine.
func Serve(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	log.WithField("addr", addr).Info("metrics endpoint listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("metrics endpoint failed")
	}
}
