package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPromRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPromRecorder(reg, "publisher")

	rec.MessagePublished()
	rec.MessagePublished()
	rec.PublishFailed()
	rec.MessageReceived()
	rec.ReportThroughput(123.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.published))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.failed))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.received))
	assert.Equal(t, 123.5, testutil.ToFloat64(rec.throughput))
}

func TestNopRecorderIsSafe(t *testing.T) {
	rec := Nop()
	rec.MessagePublished()
	rec.PublishFailed()
	rec.MessageReceived()
	rec.ReportThroughput(1)
}
