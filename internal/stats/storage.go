package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorageMetrics observes capture storage operations. It satisfies the
// pebble store's MetricsHook.
type StorageMetrics struct {
	readSeconds   prometheus.Histogram
	commitSeconds prometheus.Histogram
	readBytes     prometheus.Counter
	commitBytes   prometheus.Counter
}

// NewStorageMetrics builds and registers the storage metrics on reg.
func NewStorageMetrics(reg prometheus.Registerer) *StorageMetrics {
	m := &StorageMetrics{
		readSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtap_storage_read_seconds",
			Help:    "Latency of capture store reads.",
			Buckets: prometheus.DefBuckets,
		}),
		commitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtap_storage_commit_seconds",
			Help:    "Latency of capture store batch commits.",
			Buckets: prometheus.DefBuckets,
		}),
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtap_storage_read_bytes_total",
			Help: "Bytes read from the capture store.",
		}),
		commitBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqtap_storage_commit_bytes_total",
			Help: "Bytes committed to the capture store.",
		}),
	}
	reg.MustRegister(m.readSeconds, m.commitSeconds, m.readBytes, m.commitBytes)
	return m
}

// ObserveRead records one read.
func (m *StorageMetrics) ObserveRead(elapsed time.Duration, bytes int) {
	m.readSeconds.Observe(elapsed.Seconds())
	m.readBytes.Add(float64(bytes))
}

// ObserveBatchCommit records one batch commit.
func (m *StorageMetrics) ObserveBatchCommit(elapsed time.Duration, bytes int) {
	m.commitSeconds.Observe(elapsed.Seconds())
	m.commitBytes.Add(float64(bytes))
}
