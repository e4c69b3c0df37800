package prometheus

import (
	"github.com/MrEthical07/medvault"
	"github.com/MrEthical07/medvault/metrics/export/internaldefs"
	prom "github.com/prometheus/client_golang/prometheus"
)

type metricsSource interface {
	MetricsSnapshot() medvault.MetricsSnapshot
	AuditDropped() uint64
}

// Collector publishes engine counters through a Prometheus registry. Values
// are read from a snapshot on every scrape; nothing is cached.
type Collector struct {
	source     metricsSource
	counters   []*prom.Desc
	histograms []*prom.Desc
	dropped    *prom.Desc
}

var _ prom.Collector = (*Collector)(nil)

// NewCollector reads from the given engine.
func NewCollector(engine *medvault.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]*prom.Desc, len(internaldefs.CounterDefs)),
		histograms: make([]*prom.Desc, len(internaldefs.HistogramDefs)),
		dropped: prom.NewDesc(
			"medvault_audit_dropped_total",
			"Audit events dropped because the dispatcher buffer was full.",
			nil, nil,
		),
	}
	for i, def := range internaldefs.CounterDefs {
		c.counters[i] = prom.NewDesc(def.Name, def.Help, nil, nil)
	}
	for i, def := range internaldefs.HistogramDefs {
		c.histograms[i] = prom.NewDesc(def.Name, def.Help, nil, nil)
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.dropped
}

func (c *Collector) Collect(ch chan<- prom.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for i, def := range internaldefs.CounterDefs {
		ch <- prom.MustNewConstMetric(c.counters[i], prom.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID]))
		last := len(cumulative) - 1
		// The engine's last bucket absorbs overflow, so it becomes the
		// implicit +Inf bucket and the total count.
		buckets := make(map[float64]uint64, last)
		for b := 0; b < last; b++ {
			buckets[medvault.HistogramBounds[b]] = cumulative[b]
		}
		// The snapshot carries no sum.
		ch <- prom.MustNewConstHistogram(c.histograms[i], cumulative[last], 0, buckets)
	}

	ch <- prom.MustNewConstMetric(c.dropped, prom.CounterValue, float64(c.source.AuditDropped()))
}
