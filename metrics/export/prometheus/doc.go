// Package prometheus exposes engine counters as a prometheus.Collector.
//
// Register [NewCollector] on the same registry that serves /metrics. Counter
// names are medvault_*_total and the single histogram is
// medvault_resolve_latency_seconds.
package prometheus
