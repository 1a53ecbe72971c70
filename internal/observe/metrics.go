// Package observe provides observability primitives for scopeql:
// OpenTelemetry metrics, tracing helpers, and trace-aware structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via a standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all scopeql metrics.
const meterName = "github.com/MrWong99/scopeql"

// Metrics holds all OpenTelemetry metric instruments for the engine.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ResolveDuration tracks end-to-end scope resolution latency. Use with
	// attribute.String("status", "ok"|"empty"|"error").
	ResolveDuration metric.Float64Histogram

	// Resolutions counts top-level resolutions. Use with attributes:
	//   attribute.String("root", ...), attribute.String("status", ...)
	Resolutions metric.Int64Counter

	// CacheHits and CacheMisses count snapshot cache effectiveness.
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// Repairs counts recovery attempts. Use with attributes:
	//   attribute.String("code", ...), attribute.Bool("recovered", ...)
	Repairs metric.Int64Counter

	// ResolutionErrors counts fatal resolution errors by code.
	ResolutionErrors metric.Int64Counter

	// PredicateFailures counts per-candidate filter evaluation failures.
	PredicateFailures metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// an in-process query engine: resolutions are sub-millisecond when cached and
// a few milliseconds when the gateway is consulted.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ResolveDuration, err = m.Float64Histogram("scopeql.resolve.duration",
		metric.WithDescription("End-to-end scope resolution latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Resolutions, err = m.Int64Counter("scopeql.resolutions",
		metric.WithDescription("Total top-level resolutions by root and status."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("scopeql.cache.hits",
		metric.WithDescription("Snapshot cache hits."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("scopeql.cache.misses",
		metric.WithDescription("Snapshot cache misses."),
	); err != nil {
		return nil, err
	}
	if met.Repairs, err = m.Int64Counter("scopeql.repairs",
		metric.WithDescription("Recovery attempts by error code and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ResolutionErrors, err = m.Int64Counter("scopeql.resolution.errors",
		metric.WithDescription("Fatal resolution errors by code."),
	); err != nil {
		return nil, err
	}
	if met.PredicateFailures, err = m.Int64Counter("scopeql.predicate.failures",
		metric.WithDescription("Per-candidate filter predicate evaluation failures."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordResolution records one top-level resolution with its latency.
func (m *Metrics) RecordResolution(ctx context.Context, root, status string, elapsed time.Duration) {
	m.Resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("root", root),
		attribute.String("status", status),
	))
	m.ResolveDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("status", status)))
}

// RecordRepair records one recovery attempt.
func (m *Metrics) RecordRepair(ctx context.Context, code string, recovered bool) {
	m.Repairs.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("code", code),
			attribute.Bool("recovered", recovered),
		),
	)
}

// RecordResolutionError records one fatal resolution error.
func (m *Metrics) RecordResolutionError(ctx context.Context, code string) {
	m.ResolutionErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("code", code)),
	)
}
