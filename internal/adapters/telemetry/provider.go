// Package telemetry records one span per job with OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/mk/internal/core/ports"
)

// InstrumentationName names the tracer of the build engine.
const InstrumentationName = "go.trai.ch/mk"

// KindAttribute carries ports.SpanConfig.Kind.
const KindAttribute = "mk.kind"

// OTelTracer is a concrete implementation of ports.Tracer using OpenTelemetry.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer creates an OTelTracer drawing spans from tp.
func NewOTelTracer(tp trace.TracerProvider) *OTelTracer {
	return &OTelTracer{tracer: tp.Tracer(InstrumentationName)}
}

// Start creates a new span.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var startOpts []trace.SpanStartOption
	if cfg.Kind != "" {
		startOpts = append(startOpts, trace.WithAttributes(attribute.String(KindAttribute, cfg.Kind)))
	}
	ctx, span := t.tracer.Start(ctx, name, startOpts...)
	return ctx, &OTelSpan{span: span}
}

// OTelSpan is a concrete implementation of ports.Span using OpenTelemetry.
type OTelSpan struct {
	span trace.Span
}

// End completes the span.
func (s *OTelSpan) End() {
	s.span.End()
}

// RecordError records an error for the span.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// Provider owns the SDK tracer provider behind --trace.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider creates a tracer provider whose spans are reported through
// the processors.
func NewProvider(processors ...sdktrace.SpanProcessor) *Provider {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sdktrace.AlwaysSample())}
	for _, p := range processors {
		opts = append(opts, sdktrace.WithSpanProcessor(p))
	}
	return &Provider{tp: sdktrace.NewTracerProvider(opts...)}
}

// Tracer returns a ports.Tracer backed by the provider.
func (p *Provider) Tracer() *OTelTracer {
	return NewOTelTracer(p.tp)
}

// SDK returns the underlying tracer provider.
func (p *Provider) SDK() *sdktrace.TracerProvider {
	return p.tp
}

// Shutdown flushes and stops every processor.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}
