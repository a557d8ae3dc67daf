package metric

import "github.com/prometheus/client_golang/prometheus"

// KeyCounter is implemented by the store.
type KeyCounter interface {
	Len() int
}

// KeyspaceCollector reports the number of stored keys at scrape time.
type KeyspaceCollector struct {
	store KeyCounter
	keys  *prometheus.Desc
}

// NewKeyspaceCollector creates a collector over store.
func NewKeyspaceCollector(store KeyCounter) *KeyspaceCollector {
	return &KeyspaceCollector{
		store: store,
		keys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "keys"),
			"Keys held in memory, including expired keys not yet swept.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *KeyspaceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
}

// Collect implements prometheus.Collector.
func (c *KeyspaceCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(c.store.Len()))
}
