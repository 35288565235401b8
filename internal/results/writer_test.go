package results

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAndLoadDirRoundTrip(t *testing.T) {
	outDir := t.TempDir()
	w := NewWriter(outDir, "batch-7", "redis", "host-a")

	subStats := RunStats{SubscriberID: "subscriber_1", Received: 1200, Duration: 2 * time.Second}
	path, err := w.WriteSubscriber(subStats)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "batch-7"), filepath.Dir(path))

	pubStats := PublisherStats{Workers: 3, Published: 1500, Duration: 2 * time.Second}
	_, err = w.WritePublisher(pubStats, "publisher_1")
	require.NoError(t, err)

	records, err := LoadDir(filepath.Join(outDir, "batch-7"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	runs := SubscriberRuns(records)
	require.Len(t, runs, 1, "publisher records must not aggregate as runs")
	assert.Equal(t, subStats.SubscriberID, runs[0].SubscriberID)
	assert.Equal(t, subStats.Received, runs[0].Received)
	assert.Equal(t, subStats.Duration, runs[0].Duration)

	agg, err := Aggregate(runs)
	require.NoError(t, err)
	assert.InDelta(t, 600.0, agg.CombinedThroughput, 1e-9)
}

func TestLoadDirSkipsUndecodableFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))

	w := NewWriter(dir, "", "nats", "host-b")
	_, err := w.WriteSubscriber(RunStats{SubscriberID: "subscriber_2", Received: 10, Duration: time.Second})
	require.NoError(t, err)

	records, err := LoadDir(filepath.Join(dir, w.BatchID))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSubscriberRunsDropsEmptyWindows(t *testing.T) {
	records := []Record{
		{SubscriberID: "subscriber_1", Role: RoleSubscriber, MessagesReceived: 0, DurationUS: 0},
		{SubscriberID: "subscriber_2", Role: RoleSubscriber, MessagesReceived: 5, DurationUS: 1000000},
		{SubscriberID: "", MessagesReceived: 9},
	}
	runs := SubscriberRuns(records)
	require.Len(t, runs, 1)
	assert.Equal(t, "subscriber_2", runs[0].SubscriberID)
}

func TestResolveBatchID(t *testing.T) {
	assert.Equal(t, "batch_42", ResolveBatchID("batch_42"))
	generated := ResolveBatchID("")
	assert.NotEmpty(t, generated)
	assert.NotEqual(t, generated, ResolveBatchID(""))
}
