// Package telemetry installs the global OpenTelemetry tracer provider. The
// spans started by the orchestrator and the downstream clients are dropped
// until Setup installs a provider.
package telemetry

import (
	"context"
	"fmt"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Shutdown flushes pending spans and stops the exporter.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Setup exports spans over OTLP/HTTP to cfg.Endpoint. With no endpoint it
// installs nothing and returns a no-op Shutdown.
func Setup(ctx context.Context, cfg config.TelemetryConfig, serviceName, version string) (Shutdown, error) {
	if !cfg.Enabled() {
		logging.Get(logging.CategoryBoot).Debug("Tracing disabled: no OTLP endpoint configured")
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp, err := newProvider(ctx, serviceName, version, cfg.SampleRatio, sdktrace.WithBatcher(exporter))
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return noop, err
	}
	install(tp)

	logging.Boot("Tracing enabled: exporting to %s (sample ratio %.2f)", cfg.Endpoint, cfg.SampleRatio)
	return tp.Shutdown, nil
}

func newProvider(ctx context.Context, serviceName, version string, ratio float64, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	opts = append(opts,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	return sdktrace.NewTracerProvider(opts...), nil
}

func install(tp *sdktrace.TracerProvider) {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
}
