package spanz

import (
	"context"
)

// bundleKeyType is a private type for context keys to avoid collisions.
type bundleKeyType string

const (
	bundleKey bundleKeyType = "spanz"
)

// contextBundle holds the ambient trace context and, when known, the span
// that owns it, so binding a span costs a single context allocation.
type contextBundle struct {
	span  Span
	trace TraceContext
}

// ContextWithTraceContext returns a copy of ctx in which tc is the ambient
// trace context. ctx itself is unchanged, so the previous ambient value is
// back in scope as soon as the caller stops using the returned context.
// An invalid tc is not bound.
func ContextWithTraceContext(ctx context.Context, tc TraceContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if !tc.IsValid() {
		return ctx
	}
	return context.WithValue(ctx, bundleKey, &contextBundle{trace: tc})
}

// ContextWithSpan binds span as the ambient span of the returned context.
// Spans without a valid context, such as no-op spans, are not bound: ctx is
// returned unchanged and any span already ambient in it stays current, so
// spans started beneath a no-op span parent on that outer span.
func ContextWithSpan(ctx context.Context, span Span) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if span == nil {
		return ctx
	}
	tc := span.Context().TraceContext()
	if !tc.IsValid() {
		return ctx
	}
	return context.WithValue(ctx, bundleKey, &contextBundle{trace: tc, span: span})
}

// TraceContextFromContext returns the ambient trace context, if any.
func TraceContextFromContext(ctx context.Context) (TraceContext, bool) {
	if bundle := bundleFrom(ctx); bundle != nil {
		return bundle.trace, true
	}
	return TraceContext{}, false
}

// SpanFromContext extracts the ambient span from a context.
// Returns nil if no span is present, or if only a bare TraceContext was bound.
func SpanFromContext(ctx context.Context) Span {
	if bundle := bundleFrom(ctx); bundle != nil {
		return bundle.span
	}
	return nil
}

func bundleFrom(ctx context.Context) *contextBundle {
	if ctx == nil {
		return nil
	}
	bundle, _ := ctx.Value(bundleKey).(*contextBundle)
	return bundle
}
