package spanz

// SpanContext identifies a span within its trace.
// It is an immutable value; derive new contexts with Child.
type SpanContext struct {
	TraceID      string `json:"trace_id"`
	SpanID       string `json:"span_id"`
	ParentSpanID string `json:"parent_span_id,omitempty"`
}

// NewRootSpanContext starts a new trace.
func NewRootSpanContext() SpanContext {
	return SpanContext{
		TraceID: NewTraceID(),
		SpanID:  NewSpanID(),
	}
}

// Child derives a context for a span whose parent is c.
func (c SpanContext) Child() SpanContext {
	return c.ChildWithID(NewSpanID())
}

// ChildWithID derives a child context using the supplied span ID.
func (c SpanContext) ChildWithID(spanID string) SpanContext {
	return SpanContext{
		TraceID:      c.TraceID,
		SpanID:       spanID,
		ParentSpanID: c.SpanID,
	}
}

// IsValid reports whether both identifiers are present.
func (c SpanContext) IsValid() bool {
	return c.TraceID != "" && c.SpanID != ""
}

// IsRoot reports whether the context has no parent.
func (c SpanContext) IsRoot() bool {
	return c.ParentSpanID == ""
}

// TraceContext projects c onto the fields needed for propagation.
func (c SpanContext) TraceContext() TraceContext {
	return TraceContext{TraceID: c.TraceID, SpanID: c.SpanID}
}

// TraceContext is the ambient "whose child am I" value carried in
// context.Context. It drops ParentSpanID, which propagation never needs.
type TraceContext struct {
	TraceID string
	SpanID  string
}

// IsValid reports whether both identifiers are present.
func (t TraceContext) IsValid() bool {
	return t.TraceID != "" && t.SpanID != ""
}

// SpanContext synthesizes the parent SpanContext a child span is derived from.
func (t TraceContext) SpanContext() SpanContext {
	return SpanContext{TraceID: t.TraceID, SpanID: t.SpanID}
}
