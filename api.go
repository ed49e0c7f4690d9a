// Package spanz provides a minimal, local tracing abstraction for
// instrumenting client libraries.
//
// spanz records named, timed spans with attributes, events, status and
// parent/child linkage inside a single process. It carries no wire
// propagation, no sampling and no exporters.
//
// Core Components:
//   - Tracer: the single span-creation primitive.
//   - Span: a recording unit of work, ended exactly once.
//   - InMemoryTracer: a Tracer that keeps every finished span for inspection.
//   - NoopTracer: the zero-overhead default.
//
// Basic Usage:
//
//	tracer := spanz.NewInMemoryTracer()
//	defer tracer.Close()
//
//	// Run an operation inside a span.
//	rows, err := spanz.WithSpan(ctx, tracer, "db.query",
//		func(ctx context.Context, span spanz.Span) ([]Row, error) {
//			span.SetAttribute("db.statement", spanz.String(stmt))
//			return db.Query(ctx, stmt)
//		}, spanz.WithKind(spanz.SpanKindClient))
//
//	// Nested operations started from ctx are parented automatically.
//	for _, s := range tracer.FinishedSpans() {
//		fmt.Println(s.Name, s.Duration)
//	}
//
// Context Propagation:
//
// The span currently in scope travels in context.Context. Start and WithSpan
// read it when no explicit parent is given; child spans inherit the parent's
// TraceID and reference the parent's SpanID. Leaving a scope never changes
// the caller's context, so the previous span is back in scope on every exit
// path.
//
// Thread Safety:
//
// Tracers and spans are safe for concurrent use by multiple goroutines.
// FinishedSpan values are immutable snapshots.
//
// Resource Cleanup:
//
// Call InMemoryTracer.Close() to stop background id generation and async
// handler workers. A span that is never ended stays active forever.
package spanz

// Key represents a span operation name.
type Key = string
