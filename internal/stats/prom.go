package stats

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes counters on a Prometheus registry. The source returns
// the snapshot to report; sessions come and go, so the source indirection
// lets the collector outlive any one Counters instance.
type Collector struct {
	source func() Snapshot

	received  *prometheus.Desc
	enqueued  *prometheus.Desc
	delivered *prometheus.Desc
	dropped   *prometheus.Desc
	buffered  *prometheus.Desc
}

// NewCollector builds a collector reading from source.
func NewCollector(source func() Snapshot) *Collector {
	return &Collector{
		source: source,
		received: prometheus.NewDesc("mqtap_events_received_total",
			"Events seen at the broker callback.", nil, nil),
		enqueued: prometheus.NewDesc("mqtap_events_enqueued_total",
			"Events accepted by the ingestion inbox.", nil, nil),
		delivered: prometheus.NewDesc("mqtap_events_delivered_total",
			"Events published by the pump to subscribers.", nil, nil),
		dropped: prometheus.NewDesc("mqtap_events_dropped_total",
			"Events lost to the inbox overflow policy.", nil, nil),
		buffered: prometheus.NewDesc("mqtap_events_buffered",
			"Estimated events currently buffered in the inbox.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (mc *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- mc.received
	ch <- mc.enqueued
	ch <- mc.delivered
	ch <- mc.dropped
	ch <- mc.buffered
}

// Collect implements prometheus.Collector.
func (mc *Collector) Collect(ch chan<- prometheus.Metric) {
	s := mc.source()
	ch <- prometheus.MustNewConstMetric(mc.received, prometheus.CounterValue, float64(s.Received))
	ch <- prometheus.MustNewConstMetric(mc.enqueued, prometheus.CounterValue, float64(s.Enqueued))
	ch <- prometheus.MustNewConstMetric(mc.delivered, prometheus.CounterValue, float64(s.Delivered))
	ch <- prometheus.MustNewConstMetric(mc.dropped, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(mc.buffered, prometheus.GaugeValue, float64(s.Buffered))
}
