package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LoadDir reads every *.json record in dir (one flat directory, the way
// the writer lays a batch out). Files that do not decode are skipped with
// a warning; a partially damaged batch should still aggregate.
func LoadDir(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read results dir: %w", err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.WithError(err).WithField("path", path).Warn("skipping unreadable result")
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			log.WithError(err).WithField("path", path).Warn("skipping undecodable result")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// SubscriberRuns filters a batch down to the subscriber-side runs worth
// aggregating. Records without a role are treated as subscriber records
// for compatibility with result files written by older harness builds.
// Zero-count records are dropped here, so a batch where every subscriber
// saw nothing surfaces as ErrNoResults downstream instead of averaging
// in empty windows.
func SubscriberRuns(records []Record) []RunStats {
	var runs []RunStats
	for _, rec := range records {
		if rec.Role != "" && rec.Role != RoleSubscriber {
			continue
		}
		if rec.SubscriberID == "" || rec.MessagesReceived == 0 {
			continue
		}
		runs = append(runs, rec.RunStats())
	}
	return runs
}
