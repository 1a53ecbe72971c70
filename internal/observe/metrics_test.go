package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordResolution(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordResolution(ctx, "actor", "ok", 250*time.Microsecond)
	m.RecordResolution(ctx, "actor", "empty", 100*time.Microsecond)

	rm := collect(t, reader)

	counter := findMetric(rm, "scopeql.resolutions")
	if counter == nil {
		t.Fatal("scopeql.resolutions not found")
	}
	sum, ok := counter.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("resolutions data type = %T, want Sum[int64]", counter.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("resolutions total = %d, want 2", total)
	}

	hist := findMetric(rm, "scopeql.resolve.duration")
	if hist == nil {
		t.Fatal("scopeql.resolve.duration not found")
	}
	hd, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration data type = %T, want Histogram[float64]", hist.Data)
	}
	var count uint64
	for _, dp := range hd.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("duration observations = %d, want 2", count)
	}
}

func TestRecordRepair(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRepair(ctx, "corrupted_data", true)
	m.RecordRepair(ctx, "missing_component", false)

	rm := collect(t, reader)
	counter := findMetric(rm, "scopeql.repairs")
	if counter == nil {
		t.Fatal("scopeql.repairs not found")
	}
	sum, ok := counter.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("repairs data type = %T, want Sum[int64]", counter.Data)
	}
	if len(sum.DataPoints) != 2 {
		t.Errorf("repairs attribute sets = %d, want 2", len(sum.DataPoints))
	}
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.CacheHits.Add(ctx, 3)
	m.CacheMisses.Add(ctx, 1)
	m.PredicateFailures.Add(ctx, 2)
	m.RecordResolutionError(ctx, "cycle")

	rm := collect(t, reader)
	for name, want := range map[string]int64{
		"scopeql.cache.hits":         3,
		"scopeql.cache.misses":       1,
		"scopeql.predicate.failures": 2,
		"scopeql.resolution.errors":  1,
	} {
		metric := findMetric(rm, name)
		if metric == nil {
			t.Errorf("%s not found", name)
			continue
		}
		sum, ok := metric.Data.(metricdata.Sum[int64])
		if !ok {
			t.Errorf("%s data type = %T, want Sum[int64]", name, metric.Data)
			continue
		}
		var total int64
		for _, dp := range sum.DataPoints {
			total += dp.Value
		}
		if total != want {
			t.Errorf("%s = %d, want %d", name, total, want)
		}
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics must return the same instance")
	}
}
