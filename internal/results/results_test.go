package results

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatsThroughput(t *testing.T) {
	stats := RunStats{Received: 1000, Duration: 2 * time.Second}
	assert.Equal(t, 500.0, stats.Throughput())
}

func TestRunStatsThroughputZeroDuration(t *testing.T) {
	stats := RunStats{Received: 1000}
	assert.Equal(t, 0.0, stats.Throughput())
}

func TestPublisherStatsThroughput(t *testing.T) {
	stats := PublisherStats{Workers: 4, Published: 600, Duration: 3 * time.Second}
	assert.Equal(t, 200.0, stats.Throughput())
	assert.Equal(t, 0.0, PublisherStats{Published: 10}.Throughput())
}

func TestAggregateCombinedDiffersFromAverage(t *testing.T) {
	runs := []RunStats{
		{SubscriberID: "subscriber_1", Received: 100, Duration: 1 * time.Second},
		{SubscriberID: "subscriber_2", Received: 300, Duration: 3 * time.Second},
	}

	agg, err := Aggregate(runs)
	require.NoError(t, err)

	assert.Equal(t, 2, agg.Instances)
	assert.Equal(t, 200.0, agg.AvgMessages)
	assert.Equal(t, 2*time.Second, agg.AvgDuration)

	// Per-instance rates are 100 and 100 msg/s; the combined rate is
	// 400 messages over the 2s average window.
	assert.InDelta(t, 100.0, agg.AvgThroughput, 1e-9)
	assert.InDelta(t, 200.0, agg.CombinedThroughput, 1e-9)
	assert.NotEqual(t, agg.AvgThroughput, agg.CombinedThroughput)
}

func TestAggregateSingleInstance(t *testing.T) {
	agg, err := Aggregate([]RunStats{{Received: 50, Duration: 500 * time.Millisecond}})
	require.NoError(t, err)
	assert.Equal(t, 1, agg.Instances)
	assert.InDelta(t, 100.0, agg.AvgThroughput, 1e-9)
	assert.InDelta(t, 100.0, agg.CombinedThroughput, 1e-9)
}

func TestAggregateEmptyInputIsError(t *testing.T) {
	_, err := Aggregate(nil)
	require.ErrorIs(t, err, ErrNoResults)
}

func TestAggregateDegenerateWindows(t *testing.T) {
	// Timeout-forced results have zero duration; they must average in
	// without producing NaN or Inf anywhere.
	agg, err := Aggregate([]RunStats{
		{SubscriberID: "subscriber_1"},
		{SubscriberID: "subscriber_2"},
	})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(agg.AvgThroughput))
	assert.Equal(t, 0.0, agg.AvgThroughput)
	assert.Equal(t, 0.0, agg.CombinedThroughput)
}
