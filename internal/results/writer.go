package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ResolveBatchID keeps the operator-assigned batch id when one is set
// (the compose deployment always sets BATCH_ID) and otherwise mints a
// short one so an ad-hoc run still gets its own directory.
func ResolveBatchID(configured string) string {
	if configured != "" {
		return configured
	}
	return "batch-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// timestampLayout matches the batch/file naming used by the result
// directories, second granularity.
const timestampLayout = "20060102T150405"

// Writer persists finalized run records as JSON files under
// <out>/<batch>/, named <broker>_<id>_<host>_<ts>.json so that records
// from many hosts and instances land side by side without clashing.
type Writer struct {
	OutDir     string
	BatchID    string
	BrokerType string
	Host       string

	now func() time.Time
}

func NewWriter(outDir, batchID, brokerType, host string) *Writer {
	return &Writer{
		OutDir:     outDir,
		BatchID:    batchID,
		BrokerType: brokerType,
		Host:       host,
		now:        time.Now,
	}
}

// WriteSubscriber persists one subscriber's finalized stats and returns
// the file path.
func (w *Writer) WriteSubscriber(stats RunStats) (string, error) {
	ts := w.now().Format(timestampLayout)
	rec := Record{
		BatchID:          w.BatchID,
		BrokerType:       w.BrokerType,
		Role:             RoleSubscriber,
		Host:             w.Host,
		Timestamp:        ts,
		SubscriberID:     stats.SubscriberID,
		MessagesReceived: stats.Received,
		DurationUS:       stats.Duration.Microseconds(),
		DurationMS:       stats.Duration.Milliseconds(),
		Throughput:       stats.Throughput(),
	}
	return w.write(rec, stats.SubscriberID, ts)
}

// WritePublisher persists the publishing side's totals under the given
// instance id.
func (w *Writer) WritePublisher(stats PublisherStats, instanceID string) (string, error) {
	ts := w.now().Format(timestampLayout)
	rec := Record{
		BatchID:           w.BatchID,
		BrokerType:        w.BrokerType,
		Role:              RolePublisher,
		Host:              w.Host,
		Timestamp:         ts,
		SubscriberID:      instanceID,
		MessagesPublished: stats.Published,
		DurationUS:        stats.Duration.Microseconds(),
		DurationMS:        stats.Duration.Milliseconds(),
		Throughput:        stats.Throughput(),
	}
	return w.write(rec, instanceID, ts)
}

func (w *Writer) write(rec Record, instanceID, ts string) (string, error) {
	dir := filepath.Join(w.OutDir, w.BatchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s_%s.json", w.BrokerType, instanceID, w.Host, ts)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}

	// Echo the record on stdout so a log scrape sees the result even
	// when the results volume is not collected.
	fmt.Println(string(data))
	log.WithFields(log.Fields{"path": path, "role": rec.Role}).Info("result written")
	return path, nil
}
