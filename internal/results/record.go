package results

import "time"

// Roles stamped into persisted records.
const (
	RoleSubscriber = "subscriber"
	RolePublisher  = "publisher"
)

// Record is the persisted shape of one instance's result, one JSON file
// per instance under the batch directory. Run metadata (batch, broker,
// host, timestamp) is supplied by the environment, not computed here.
type Record struct {
	BatchID    string `json:"batch_id,omitempty"`
	BrokerType string `json:"broker_type,omitempty"`
	Role       string `json:"role,omitempty"`
	Host       string `json:"host,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`

	SubscriberID      string `json:"subscriber_id"`
	MessagesReceived  uint64 `json:"messages_received"`
	MessagesPublished uint64 `json:"messages_published,omitempty"`

	DurationUS int64   `json:"duration_us"`
	DurationMS int64   `json:"duration_ms"`
	Throughput float64 `json:"throughput_msg_per_sec"`
}

// RunStats converts a decoded subscriber record back into the in-memory
// model used for aggregation.
func (r Record) RunStats() RunStats {
	return RunStats{
		SubscriberID: r.SubscriberID,
		Received:     r.MessagesReceived,
		Duration:     time.Duration(r.DurationUS) * time.Microsecond,
	}
}
