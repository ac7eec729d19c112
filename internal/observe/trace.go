package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// tracerName is the instrumentation scope of the database spans.
const tracerName = "tacticsdb"

// Span is an in-flight traced operation.
type Span interface {
	End(err error)
}

// Tracer starts spans for database operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, Span)
}

// OTelTracer adapts an OpenTelemetry TracerProvider.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer returns a Tracer backed by tp. A nil tp uses a no-op provider.
func NewOTelTracer(tp trace.TracerProvider) *OTelTracer {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &OTelTracer{tracer: tp.Tracer(tracerName)}
}

// Start implements Tracer.
func (t *OTelTracer) Start(ctx context.Context, operation string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, operation, trace.WithAttributes(attribute.String("tacticsdb.operation", operation)))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

// NopTracer starts spans that record nothing.
type NopTracer struct{}

type nopSpan struct{}

func (nopSpan) End(error) {}

// Start implements Tracer.
func (NopTracer) Start(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, nopSpan{}
}

// Instrument runs fn inside a span and records its outcome.
func Instrument(ctx context.Context, rec Recorder, tr Tracer, operation string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := tr.Start(ctx, operation)
	err := fn(ctx)
	span.End(err)
	rec.Observe(ctx, operation, err == nil, time.Since(start))
	return err
}
