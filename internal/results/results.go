// Package results holds the statistics derived from a benchmark run and
// their persistence: per-subscriber run stats, publisher-side stats, and
// the aggregation across subscriber instances of one run.
package results

import (
	"errors"
	"time"
)

// ErrNoResults is returned when aggregation is asked to summarize an
// empty set of run records.
var ErrNoResults = errors.New("no benchmark results to aggregate")

// RunStats is what one subscriber measured: payload messages observed
// strictly inside its sentinel-delimited window, and the window length.
// A degenerate (timeout-forced) window has zero duration and reports
// zero throughput rather than failing.
type RunStats struct {
	SubscriberID string
	Received     uint64
	Duration     time.Duration
}

// Throughput is messages per second over the window, 0 for an empty window.
func (s RunStats) Throughput() float64 {
	secs := s.Duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Received) / secs
}

// PublisherStats summarizes the publishing side of a run: the sum of all
// workers' successful publishes over the wall-clock span from worker
// launch to join.
type PublisherStats struct {
	Workers   int
	Published uint64
	Failed    uint64
	Duration  time.Duration

	// Sentinel emission instants recorded by the leader worker. Zero
	// when the leader never connected.
	FirstSentinelAt time.Time
	LastSentinelAt  time.Time
}

func (s PublisherStats) Throughput() float64 {
	secs := s.Duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Published) / secs
}

// AggregateStats is the read-only rollup over the run stats of K
// subscriber instances.
type AggregateStats struct {
	Instances   int
	AvgMessages float64
	AvgDuration time.Duration

	// AvgThroughput is the mean of the per-instance rates.
	AvgThroughput float64

	// CombinedThroughput divides total messages by average duration.
	// It is deliberately not the sum of per-instance rates, which would
	// double-count the overlap of concurrent windows.
	CombinedThroughput float64
}

// Aggregate rolls up the stats of all subscriber instances of one run.
// An empty input is an error, never a silent zero.
func Aggregate(runs []RunStats) (AggregateStats, error) {
	if len(runs) == 0 {
		return AggregateStats{}, ErrNoResults
	}

	var totalMessages uint64
	var totalDuration time.Duration
	var totalThroughput float64
	for _, r := range runs {
		totalMessages += r.Received
		totalDuration += r.Duration
		totalThroughput += r.Throughput()
	}

	k := len(runs)
	agg := AggregateStats{
		Instances:     k,
		AvgMessages:   float64(totalMessages) / float64(k),
		AvgDuration:   totalDuration / time.Duration(k),
		AvgThroughput: totalThroughput / float64(k),
	}
	if secs := agg.AvgDuration.Seconds(); secs > 0 {
		agg.CombinedThroughput = float64(totalMessages) / secs
	}
	return agg, nil
}
