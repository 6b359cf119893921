package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordCalculation("dasha", 0.002)
	r.RecordCalculation("dasha", 0.001)
	r.RecordEventPublished("kafka", "dasha")
	r.RecordError("ephemeris")
	r.RecordCache("ephemeris", true)
	r.RecordCache("ephemeris", false)
	r.RecordCache("ephemeris", false)

	if got := testutil.ToFloat64(r.calculations.WithLabelValues("dasha")); got != 2 {
		t.Fatalf("expected 2 calculations, got %v", got)
	}
	if got := testutil.ToFloat64(r.published.WithLabelValues("kafka", "dasha")); got != 1 {
		t.Fatalf("expected 1 published, got %v", got)
	}
	if got := testutil.ToFloat64(r.cache.WithLabelValues("ephemeris", "miss")); got != 2 {
		t.Fatalf("expected 2 misses, got %v", got)
	}
	if n := testutil.CollectAndCount(r.latency); n != 1 {
		t.Fatalf("expected one latency series, got %d", n)
	}
}
