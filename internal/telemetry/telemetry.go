// Package telemetry configures the global OpenTelemetry tracer provider that
// internal/executor's per-task spans (otel.Tracer(...)) report into. With
// tracing disabled it installs a noop provider so span calls stay cheap.
//
// Grounded on cklxx-elephant.ai's internal/observability/tracing.go
// (TracingConfig, exporter selection, resource/sampler wiring); trimmed to
// the OTLP exporter since this engine has no Zipkin consumer in its stack.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config configures distributed tracing for one process.
type Config struct {
	Enabled        bool
	OTLPEndpoint   string
	SampleRate     float64
	ServiceName    string
	ServiceVersion string
}

// Provider wraps the OpenTelemetry tracer provider installed globally so
// every package that calls otel.Tracer(...) picks it up without being
// wired through explicitly.
type Provider struct {
	provider *sdktrace.TracerProvider
}

// Init installs a tracer provider as the global OTel provider per cfg, and
// returns a Provider whose Shutdown flushes and closes the exporter. When
// cfg.Enabled is false, a noop provider is installed instead and Shutdown is
// a no-op.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "depgraph"
	}
	if cfg.SampleRate <= 0 || cfg.SampleRate > 1.0 {
		cfg.SampleRate = 1.0
	}
	endpoint := cfg.OTLPEndpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("telemetry: create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)

	return &Provider{provider: tp}, nil
}

// Shutdown flushes and closes the underlying exporter, if one was created.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// Tracer returns a tracer scoped to name, using whichever provider is
// currently installed globally (real or noop).
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
