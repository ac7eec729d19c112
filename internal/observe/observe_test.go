package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("NewPrometheusRecorder: %v", err)
	}
	rec.Observe(context.Background(), "rename", true, 3*time.Millisecond)
	rec.Observe(context.Background(), "rename", false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)
	rec.ObserveReferences("rename", 4)
	rec.ObserveReferences("rename", 0)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("rename", "success")); got != 1 {
		t.Fatalf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("rename", "error")); got != 1 {
		t.Fatalf("error count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(rec.references.WithLabelValues("rename")); got != 4 {
		t.Fatalf("references = %v, want 4", got)
	}
	if n := testutil.CollectAndCount(rec.durations); n != 1 {
		t.Fatalf("histogram series = %d, want 1", n)
	}

	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestOTelTracerRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tr := NewOTelTracer(tp)
	boom := errors.New("boom")
	err := Instrument(context.Background(), NopRecorder{}, tr, "delete", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Instrument error = %v, want boom", err)
	}
	if err := Instrument(context.Background(), NopRecorder{}, tr, "serialize", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Instrument: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "delete" || spans[0].Status().Code != codes.Error {
		t.Fatalf("first span = %s/%v, want delete/Error", spans[0].Name(), spans[0].Status().Code)
	}
	if spans[1].Status().Code == codes.Error {
		t.Fatalf("second span should not be an error")
	}
}

func TestNopImplementations(t *testing.T) {
	ctx := context.Background()
	got, span := NopTracer{}.Start(ctx, "x")
	if got != ctx {
		t.Fatalf("NopTracer must return the input context")
	}
	span.End(errors.New("ignored"))
	NopRecorder{}.Observe(ctx, "x", true, time.Second)
	NopRecorder{}.ObserveReferences("x", 1)

	NewOTelTracer(nil).Start(ctx, "noop")
}
