package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry trace.Tracer, scoped to this process's
// TracerProvider rather than a collector-exported one: unlike the
// teacher's NewTracer (which ships spans to an OTLP/gRPC collector when
// an endpoint is configured), this module has no such endpoint in its
// configuration surface, so spans are recorded in-process only — still
// enough to instrument EventBus dispatch, CognitiveLoop phases, and
// ToolExecutor.Execute with real span/attribute/status semantics, and a
// real exporter can be attached later via sdktrace.WithBatcher without
// touching any call site.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer builds a Tracer for serviceName and installs its provider as
// the process-global one, mirroring the teacher's otel.SetTracerProvider
// call in NewTracer's configured-endpoint branch.
func NewTracer(serviceName string) *Tracer {
	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(provider)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}
}

// Start creates a span named name as a child of ctx's span, matching the
// teacher's Tracer.Start signature in spirit (kind replaces the
// teacher's SpanOptions since this module attaches no extra attributes
// at span-start time).
func (t *Tracer) Start(ctx context.Context, name string, kind trace.SpanKind) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithSpanKind(kind))
}

// Shutdown flushes and stops the provider. Callers should invoke it once
// at process exit.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}
