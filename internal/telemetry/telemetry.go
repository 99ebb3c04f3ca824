// Package telemetry provides OpenTelemetry tracing and Prometheus run metrics.
//
// Tracing is disabled by default (no-op provider). Set
//
//	PATCHSERIES_OTEL_ENABLED=true
//
// to print spans to stderr.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/rios0rios0/patchseries"

var shutdownFns []func(context.Context) error

// Enabled reports whether tracing is active (PATCHSERIES_OTEL_ENABLED=true).
func Enabled() bool {
	return os.Getenv("PATCHSERIES_OTEL_ENABLED") == "true"
}

// Init configures the global tracer provider.
func Init(_ context.Context, serviceName string) error {
	if !Enabled() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		return nil
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(os.Stderr),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: stdout exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	shutdownFns = append(shutdownFns, provider.Shutdown)

	return nil
}

// Tracer returns a tracer with the given instrumentation name (or the global scope).
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}

// Shutdown flushes all spans and shuts down the provider.
func Shutdown(ctx context.Context) {
	for _, fn := range shutdownFns {
		_ = fn(ctx)
	}
	shutdownFns = nil
}
