// Package metrics records OpenTelemetry metrics for artifact generation and HTTP requests.
//
// The instruments are created from an injected [metric.MeterProvider]. [NewPrometheusProvider] builds one whose
// readings are scraped from /metrics, tests use a manual reader instead.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/myrjola/ace/internal/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/myrjola/ace"

// Generation takes from seconds for a cached re-check to several minutes for a long recording.
var generationBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

type Metrics struct {
	// Generations counts generation attempts by kind and status.
	Generations metric.Int64Counter
	// GenerationDuration tracks how long a generation attempt took.
	GenerationDuration metric.Float64Histogram
	// CacheLookups counts artifact cache lookups by kind and result ("hit" or "miss").
	CacheLookups metric.Int64Counter
	// HTTPRequestDuration tracks request processing time by method, route and status.
	HTTPRequestDuration metric.Float64Histogram
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{} //nolint:exhaustruct // instruments are assigned below

	if met.Generations, err = m.Int64Counter("ace.generation.runs",
		metric.WithDescription("Artifact generation attempts by kind and status."),
	); err != nil {
		return nil, errors.Wrap(err, "create generation counter")
	}
	if met.GenerationDuration, err = m.Float64Histogram("ace.generation.duration",
		metric.WithDescription("Duration of artifact generation attempts."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(generationBuckets...),
	); err != nil {
		return nil, errors.Wrap(err, "create generation histogram")
	}
	if met.CacheLookups, err = m.Int64Counter("ace.cache.lookups",
		metric.WithDescription("Artifact cache lookups by kind and result."),
	); err != nil {
		return nil, errors.Wrap(err, "create cache counter")
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("ace.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, errors.Wrap(err, "create request histogram")
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns metrics backed by the global meter provider, which discards readings unless one is installed
// with [otel.SetMeterProvider].
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		if defaultMetrics, err = NewMetrics(otel.GetMeterProvider()); err != nil {
			panic("metrics: create default instruments: " + err.Error())
		}
	})
	return defaultMetrics
}

func (m *Metrics) RecordGeneration(ctx context.Context, kind, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("kind", kind), attribute.String("status", status))
	m.Generations.Add(ctx, 1, attrs)
	m.GenerationDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *Metrics) RecordCacheLookup(ctx context.Context, kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind), attribute.String("result", result)))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument records the duration of the requests served by next under route. route is the mux pattern rather
// than the request path so that video IDs do not end up as label values.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.HTTPRequestDuration.Record(r.Context(), time.Since(start).Seconds(),
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
				attribute.Int("status", rec.statusCode),
			),
		)
	})
}
