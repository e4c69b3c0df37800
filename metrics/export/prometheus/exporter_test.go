package prometheus

import (
	"strings"
	"testing"

	"github.com/MrEthical07/medvault"
	"github.com/MrEthical07/medvault/metrics/export/internaldefs"
	"github.com/MrEthical07/medvault/store/memstore"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot medvault.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() medvault.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestCollectorEmitsEverySeries(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: medvault.MetricsSnapshot{
			Counters:   map[medvault.MetricID]uint64{},
			Histograms: map[medvault.MetricID][]uint64{},
		},
	})

	want := len(internaldefs.CounterDefs) + len(internaldefs.HistogramDefs) + 1
	if got := testutil.CollectAndCount(c); got != want {
		t.Fatalf("expected %d series, got %d", want, got)
	}
}

func TestCollectorCounterAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: medvault.MetricsSnapshot{
			Counters: map[medvault.MetricID]uint64{
				medvault.MetricLoginSuccess: 7,
			},
			Histograms: map[medvault.MetricID][]uint64{
				medvault.MetricResolveLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	expected := `
# HELP medvault_login_success_total Successful logins.
# TYPE medvault_login_success_total counter
medvault_login_success_total 7
# HELP medvault_audit_dropped_total Audit events dropped because the dispatcher buffer was full.
# TYPE medvault_audit_dropped_total counter
medvault_audit_dropped_total 2
# HELP medvault_resolve_latency_seconds Session token resolve latency.
# TYPE medvault_resolve_latency_seconds histogram
medvault_resolve_latency_seconds_bucket{le="0.005"} 1
medvault_resolve_latency_seconds_bucket{le="0.01"} 3
medvault_resolve_latency_seconds_bucket{le="0.025"} 6
medvault_resolve_latency_seconds_bucket{le="0.05"} 10
medvault_resolve_latency_seconds_bucket{le="0.1"} 15
medvault_resolve_latency_seconds_bucket{le="0.25"} 21
medvault_resolve_latency_seconds_bucket{le="0.5"} 28
medvault_resolve_latency_seconds_bucket{le="+Inf"} 36
medvault_resolve_latency_seconds_sum 0
medvault_resolve_latency_seconds_count 36
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"medvault_login_success_total",
		"medvault_audit_dropped_total",
		"medvault_resolve_latency_seconds",
	)
	if err != nil {
		t.Fatalf("unexpected collector output: %v", err)
	}
}

func TestCollectorRegistersWithEngine(t *testing.T) {
	cfg := medvault.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(strings.Repeat("k", 32))
	engine, err := medvault.New().
		WithConfig(cfg).
		WithIdentityStore(memstore.New()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	reg := prom.NewPedanticRegistry()
	if err := reg.Register(NewCollector(engine)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: medvault.MetricsSnapshot{
			Counters: map[medvault.MetricID]uint64{
				medvault.MetricLoginSuccess: 1000,
				medvault.MetricLoginFailure: 40,
				medvault.MetricTokenIssued:  1000,
				medvault.MetricTokenRevoked: 20,
				medvault.MetricRateLimitHit: 3,
				medvault.MetricAccessDenied: 12,
			},
			Histograms: map[medvault.MetricID][]uint64{
				medvault.MetricResolveLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ch := make(chan prom.Metric, 64)
		c.Collect(ch)
	}
}
