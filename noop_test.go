package spanz

import (
	"context"
	"errors"
	"testing"
)

func BenchmarkNoOpSpan(b *testing.B) {
	ctx := context.Background()
	tracer := NoopTracer{}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Run(ctx, tracer, "test-op", func(_ context.Context, span Span) error {
			span.SetAttribute("key", String("value"))
			return nil
		})
	}
}

func TestNoOpBehavior(t *testing.T) {
	tracer := NoopTracer{}
	span := tracer.StartSpan("test-op", nil)

	span.SetAttribute("key", String("value"))
	span.SetAttributes(NewAttributes(KeyValue{Key: "k", Value: Bool(true)}))
	span.SetStatus(Status{Code: StatusOK})
	span.AddEvent(NewEvent("e", Attributes{}))
	span.AddLink(NewRootSpanContext())
	span.RecordError(errors.New("ignored"))
	span.End()

	if span.IsRecording() {
		t.Error("Expected no-op span never to record")
	}
	if span.Context().IsValid() {
		t.Error("Expected no-op span to have an empty context")
	}
	if span.Attributes().Len() != 0 {
		t.Error("Expected no-op span to hold no attributes")
	}
	if span.OperationName() != "" {
		t.Error("Expected no-op span to have no name")
	}
}

func TestNoOpWithSpanSemantics(t *testing.T) {
	sentinel := errors.New("still returned")

	v, err := WithSpan(context.Background(), NoopTracer{}, "op", func(ctx context.Context, _ Span) (int, error) {
		if _, ok := TraceContextFromContext(ctx); ok {
			t.Error("Expected no-op span not to become ambient")
		}
		return 7, sentinel
	})
	if v != 7 || err != sentinel {
		t.Errorf("Expected (7, sentinel), got (%d, %v)", v, err)
	}
}

func TestNoOpSpanKeepsOuterAmbientSpan(t *testing.T) {
	recorder := NewInMemoryTracer()
	defer recorder.Close()

	err := Run(context.Background(), recorder, "outer", func(ctx context.Context, outer Span) error {
		return Run(ctx, NoopTracer{}, "silent", func(ctx context.Context, _ Span) error {
			if got := SpanFromContext(ctx); got != outer {
				t.Error("Expected the outer span to stay ambient under a no-op span")
			}
			return Run(ctx, recorder, "inner", func(context.Context, Span) error { return nil })
		})
	})
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	outer := recorder.SpansWithName("outer")[0]
	inner := recorder.SpansWithName("inner")[0]
	if inner.Context.ParentSpanID != outer.Context.SpanID {
		t.Errorf("Expected inner to parent on outer %s, got %s", outer.Context.SpanID, inner.Context.ParentSpanID)
	}
}
