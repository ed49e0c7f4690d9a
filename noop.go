package spanz

// NoopTracer starts spans that record nothing.
// It is the default returned by CurrentTracer. Its spans are never bound as
// ambient, so work run under them keeps the caller's ambient span, including
// one started by a different tracer.
type NoopTracer struct{}

// StartSpan returns a span that ignores every call.
func (NoopTracer) StartSpan(Key, *SpanContext, ...Option) Span {
	return noopSpan{}
}

type noopSpan struct{}

func (noopSpan) Context() SpanContext           { return SpanContext{} }
func (noopSpan) OperationName() string          { return "" }
func (noopSpan) Attributes() Attributes         { return Attributes{} }
func (noopSpan) SetAttribute(string, Attribute) {}
func (noopSpan) SetAttributes(Attributes)       {}
func (noopSpan) IsRecording() bool              { return false }
func (noopSpan) SetStatus(Status)               {}
func (noopSpan) AddEvent(Event)                 {}
func (noopSpan) AddLink(SpanContext)            {}
func (noopSpan) RecordError(error, ...Option)   {}
func (noopSpan) End(...Option)                  {}
