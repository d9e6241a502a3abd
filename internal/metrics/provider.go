package metrics

import (
	"net/http"

	"github.com/myrjola/ace/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// NewPrometheusProvider creates a meter provider whose readings are served by the returned handler in the
// Prometheus text format. Each call uses its own registry, so several providers can coexist in one process.
//
// Call Shutdown on the provider when done.
func NewPrometheusProvider(serviceName string) (*sdkmetric.MeterProvider, http.Handler, error) {
	// Schemaless so that the merge never conflicts with the schema URL of the SDK defaults.
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, nil, errors.Wrap(err, "merge resource")
	}

	registry := prometheus.NewRegistry()
	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, nil, errors.Wrap(err, "create prometheus exporter")
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{}) //nolint:exhaustruct // defaults are fine
	return provider, handler, nil
}
