package infrastructure

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// MetricsProvider owns the OpenTelemetry meter provider backed by the
// Prometheus exporter, so counters recorded through the otel API surface on
// the /metrics endpoint.
type MetricsProvider struct {
	MeterProvider *sdkmetric.MeterProvider
}

// InitializeMetrics sets up the otel meter provider with a Prometheus exporter
func InitializeMetrics(serviceName, serviceVersion string, logger *slog.Logger) (*MetricsProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create otel resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	logger.Info("metrics initialized",
		slog.String("exporter", "prometheus"),
		slog.String("service", serviceName))

	return &MetricsProvider{MeterProvider: mp}, nil
}

// Meter returns a named meter from the provider
func (p *MetricsProvider) Meter(name string) metric.Meter {
	return p.MeterProvider.Meter(name)
}

// Shutdown flushes and stops the meter provider
func (p *MetricsProvider) Shutdown(ctx context.Context) error {
	if p.MeterProvider == nil {
		return nil
	}
	return p.MeterProvider.Shutdown(ctx)
}
