// Package otel wires netprobe's tool observer and HTTP metrics into
// OpenTelemetry providers, with a Prometheus scrape endpoint for metrics and
// optional OTLP span export.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/petal-labs/netprobe"

// Config selects which providers are built.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Metrics enables the Prometheus-backed meter provider.
	Metrics bool
	// OTLPEndpoint enables span export over OTLP/HTTP (host:port).
	OTLPEndpoint string
	// Insecure disables TLS for the OTLP exporter.
	Insecure bool
	// SpanExporter overrides the OTLP exporter; used in tests.
	SpanExporter sdktrace.SpanExporter
}

// Providers bundles the meter and tracer used by the observers.
type Providers struct {
	meter   metric.Meter
	tracer  trace.Tracer
	handler http.Handler

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// NewProviders builds providers for cfg. Disabled signals fall back to no-op
// implementations so callers never branch on configuration.
func NewProviders(ctx context.Context, cfg Config) (*Providers, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "netprobe"
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	p := &Providers{
		meter:  metricnoop.NewMeterProvider().Meter(instrumentationName),
		tracer: tracenoop.NewTracerProvider().Tracer(instrumentationName),
	}

	if cfg.Metrics {
		registry := prometheus.NewRegistry()
		exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("otel: create prometheus exporter: %w", err)
		}
		p.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(res),
		)
		p.meter = p.meterProvider.Meter(instrumentationName)
		p.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	exporter := cfg.SpanExporter
	if exporter == nil && strings.TrimSpace(cfg.OTLPEndpoint) != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		var err error
		exporter, err = otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otel: create otlp exporter: %w", err)
		}
	}
	if exporter != nil {
		p.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		p.tracer = p.tracerProvider.Tracer(instrumentationName)
	}

	return p, nil
}

// Meter returns the configured meter.
func (p *Providers) Meter() metric.Meter { return p.meter }

// Tracer returns the configured tracer.
func (p *Providers) Tracer() trace.Tracer { return p.tracer }

// MetricsHandler returns the Prometheus scrape handler, or nil when metrics
// are disabled.
func (p *Providers) MetricsHandler() http.Handler { return p.handler }

// ToolObserver builds a tool observer on these providers.
func (p *Providers) ToolObserver() (*ToolObserver, error) {
	return NewToolObserver(p.meter, p.tracer)
}

// HTTPMetrics builds HTTP request instruments on these providers.
func (p *Providers) HTTPMetrics() (*HTTPMetrics, error) {
	return NewHTTPMetrics(p.meter)
}

// Shutdown flushes and stops the providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracerProvider != nil {
		errs = append(errs, p.tracerProvider.Shutdown(ctx))
	}
	if p.meterProvider != nil {
		errs = append(errs, p.meterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
