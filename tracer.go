package spanz

import (
	"context"
	"fmt"
)

// Tracer creates spans.
//
// StartSpan is the only primitive. A nil parent starts a new trace; any
// other parent yields a child in the parent's trace. StartSpan never reads
// context.Context and ignores WithParent. Use Start or WithSpan for
// ambient-aware creation.
type Tracer interface {
	StartSpan(operation Key, parent *SpanContext, opts ...Option) Span
}

// Start starts a span parented on WithParent if given, otherwise on the
// ambient trace context of ctx, otherwise as a new trace. The returned
// context carries the new span as ambient. A nil tracer means CurrentTracer().
func Start(ctx context.Context, tracer Tracer, operation Key, opts ...Option) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = CurrentTracer()
	}

	span := tracer.StartSpan(operation, resolveParent(ctx, opts), opts...)
	return ContextWithSpan(ctx, span), span
}

func resolveParent(ctx context.Context, opts []Option) *SpanContext {
	cfg := newSpanConfig(opts)
	if cfg.parent != nil {
		return cfg.parent
	}
	if tc, ok := TraceContextFromContext(ctx); ok {
		parent := tc.SpanContext()
		return &parent
	}
	return nil
}

// WithSpan runs fn inside a new span, started as Start does, with the span
// bound as ambient in the context fn receives.
//
// When fn returns a nil error the span gets StatusOK; otherwise the error is
// recorded and returned unchanged. The span is ended on every exit path. If
// fn panics, the panic is recorded, the span ended and the panic re-raised.
func WithSpan[T any](ctx context.Context, tracer Tracer, operation Key, fn func(context.Context, Span) (T, error), opts ...Option) (T, error) {
	ctx, span := Start(ctx, tracer, operation, opts...)

	completed := false
	defer func() {
		if completed {
			return
		}
		// fn panicked or called runtime.Goexit.
		r := recover()
		if r != nil && span.IsRecording() {
			span.RecordError(&PanicError{Value: r})
		}
		span.End()
		if r != nil {
			panic(r)
		}
	}()

	result, err := fn(ctx, span)
	completed = true

	if span.IsRecording() {
		if err != nil {
			span.RecordError(err)
		} else {
			span.SetStatus(Status{Code: StatusOK})
		}
	}
	span.End()

	return result, err
}

// Run is WithSpan for operations that return only an error.
func Run(ctx context.Context, tracer Tracer, operation Key, fn func(context.Context, Span) error, opts ...Option) error {
	_, err := WithSpan(ctx, tracer, operation, func(ctx context.Context, span Span) (struct{}, error) {
		return struct{}{}, fn(ctx, span)
	}, opts...)
	return err
}

// PanicError is recorded on a span when the operation run by WithSpan panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
