package spanz

import (
	"time"
)

// SpanKind describes the role a span plays in an operation.
type SpanKind int

const (
	SpanKindInternal SpanKind = iota
	SpanKindClient
	SpanKindServer
	SpanKindProducer
	SpanKindConsumer
)

func (k SpanKind) String() string {
	switch k {
	case SpanKindClient:
		return "client"
	case SpanKindServer:
		return "server"
	case SpanKindProducer:
		return "producer"
	case SpanKindConsumer:
		return "consumer"
	default:
		return "internal"
	}
}

// StatusCode is the outcome of a span. StatusUnset means no status was set.
type StatusCode int

const (
	StatusUnset StatusCode = iota
	StatusOK
	StatusError
)

func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unset"
	}
}

// Status is the current outcome of a span. Last write wins.
type Status struct {
	Message string     `json:"message,omitempty"`
	Code    StatusCode `json:"code"`
}

// Exception event naming.
const (
	ExceptionEventName  = "exception"
	ExceptionTypeKey    = "exception.type"
	ExceptionMessageKey = "exception.message"
)

// Event is a timestamped annotation on a span. Immutable once added.
type Event struct {
	Time       time.Time  `json:"time"`
	Attributes Attributes `json:"-"`
	Name       string     `json:"name"`
}

// NewEvent builds an event. A zero Time is replaced with the span clock's
// current time when the event is added.
func NewEvent(name string, attrs Attributes) Event {
	return Event{Name: name, Attributes: attrs.Clone()}
}

// Span is a recording unit of work.
//
// Every mutator is a silent no-op once End has been called. End is
// idempotent: the first call wins and later calls do nothing.
// Implementations must be safe for concurrent use.
type Span interface {
	// Context returns the span's identity.
	Context() SpanContext
	// OperationName returns the name the span was started with.
	OperationName() string
	// Attributes returns a copy of the span's attributes.
	Attributes() Attributes
	SetAttribute(key string, value Attribute)
	// SetAttributes merges attrs into the span's attributes.
	SetAttributes(attrs Attributes)
	// IsRecording reports whether the span still accepts mutation.
	IsRecording() bool
	SetStatus(status Status)
	AddEvent(event Event)
	AddLink(link SpanContext)
	// RecordError appends an "exception" event for err, merged with
	// WithAttributes, and sets an error status carrying err's message.
	// A nil err is ignored.
	RecordError(err error, opts ...Option)
	// End finalizes the span at WithTimestamp, or now.
	End(opts ...Option)
}

// FinishedSpan is an immutable snapshot of a span taken when it ended.
//
//nolint:govet // Field order follows the span lifecycle for readability
type FinishedSpan struct {
	Context    SpanContext   `json:"context"`
	Name       string        `json:"name"`
	Kind       SpanKind      `json:"kind"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	Attributes Attributes    `json:"-"`
	Status     Status        `json:"status"`
	Events     []Event       `json:"events,omitempty"`
	Links      []SpanContext `json:"links,omitempty"`
}

// HasParent reports whether the span was started as a child.
func (s FinishedSpan) HasParent() bool {
	return !s.Context.IsRoot()
}

// EventsNamed returns the events with the given name, in the order added.
func (s FinishedSpan) EventsNamed(name string) []Event {
	var events []Event
	for _, e := range s.Events {
		if e.Name == name {
			events = append(events, e)
		}
	}
	return events
}

// clone returns a deep copy so callers can never reach tracer-owned storage.
func (s FinishedSpan) clone() FinishedSpan {
	c := s
	c.Attributes = s.Attributes.Clone()
	if s.Events != nil {
		c.Events = make([]Event, len(s.Events))
		for i, e := range s.Events {
			c.Events[i] = e
			c.Events[i].Attributes = e.Attributes.Clone()
		}
	}
	if s.Links != nil {
		c.Links = make([]SpanContext, len(s.Links))
		copy(c.Links, s.Links)
	}
	return c
}
