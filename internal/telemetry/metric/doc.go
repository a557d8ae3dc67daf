// Package metric provides Prometheus metrics for respkv.
//
//   - prometheus.go: registry, per-command counters and latency histograms,
//     connection and handshake gauges, the /metrics handler
//   - collector.go: a collector that reads the key count from the store on scrape
//
// A nil *Registry is valid and records nothing, so components can run
// without metrics.
package metric
