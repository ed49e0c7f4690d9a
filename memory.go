package spanz

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

// TracerOption configures an InMemoryTracer.
type TracerOption func(*InMemoryTracer)

// WithClock sets the time source for span and event timestamps.
// Enables clock injection for deterministic testing.
func WithClock(clock clockz.Clock) TracerOption {
	return func(t *InMemoryTracer) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// WithLogger sets the logger used for tracer diagnostics.
func WithLogger(logger *zap.Logger) TracerOption {
	return func(t *InMemoryTracer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithIDGenerator replaces the pooled crypto/rand identifier source.
func WithIDGenerator(ids IDGenerator) TracerOption {
	return func(t *InMemoryTracer) {
		if ids != nil {
			t.ids = ids
		}
	}
}

// InMemoryTracer records the full lifecycle of every span it starts and
// keeps finished snapshots in end order for inspection.
// Safe for concurrent use by multiple goroutines.
//
//nolint:govet // Field order optimized for functionality over memory
type InMemoryTracer struct {
	store    *spanStore
	handlers *handlerRegistry
	clock    clockz.Clock
	ids      IDGenerator
	pool     *pooledIDs
	logger   *zap.Logger
	closed   sync.Once
}

// NewInMemoryTracer creates a tracer using the real clock, a no-op logger
// and pooled random identifiers unless overridden.
func NewInMemoryTracer(opts ...TracerOption) *InMemoryTracer {
	t := &InMemoryTracer{
		store:  newSpanStore(),
		clock:  clockz.RealClock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.ids == nil {
		// Pool size based on number of CPUs for optimal contention balance.
		t.pool = newPooledIDs(runtime.NumCPU() * 100)
		t.ids = t.pool
	}
	t.handlers = newHandlerRegistry(t.logger)
	return t
}

// StartSpan starts a span. A nil parent starts a new trace.
func (t *InMemoryTracer) StartSpan(operation Key, parent *SpanContext, opts ...Option) Span {
	cfg := newSpanConfig(opts)

	var sc SpanContext
	if parent != nil {
		sc = parent.ChildWithID(t.ids.NewSpanID())
	} else {
		sc = SpanContext{TraceID: t.ids.NewTraceID(), SpanID: t.ids.NewSpanID()}
	}

	start := cfg.timestamp
	if start.IsZero() {
		start = t.clock.Now()
	}

	span := &memorySpan{
		context:    sc,
		name:       operation,
		kind:       cfg.kind,
		start:      start,
		attributes: cfg.attributes.Clone(),
		links:      append([]SpanContext(nil), cfg.links...),
		clock:      t.clock,
		onEnd:      t.spanEnded,
	}
	t.store.register(span)
	return span
}

// spanEnded is the end callback of every span this tracer starts. The span
// guarantees it runs at most once per span.
func (t *InMemoryTracer) spanEnded(span *memorySpan, snapshot FinishedSpan) {
	t.store.complete(span, snapshot)
	t.handlers.execute(snapshot.clone())
}

// FinishedSpans returns a point-in-time copy of every finished span in
// end order.
func (t *InMemoryTracer) FinishedSpans() []FinishedSpan {
	return t.store.finishedCopy(nil)
}

// SpansWithName returns the finished spans named name, in end order.
func (t *InMemoryTracer) SpansWithName(name Key) []FinishedSpan {
	return t.store.finishedCopy(func(s *FinishedSpan) bool {
		return s.Name == name
	})
}

// ClearFinishedSpans empties the finished sequence. Active spans are kept
// and still recorded when they end.
func (t *InMemoryTracer) ClearFinishedSpans() {
	t.store.clearFinished()
}

// ActiveSpanCount returns the number of started spans that have not ended.
func (t *InMemoryTracer) ActiveSpanCount() int {
	return t.store.activeCount()
}

// FinishedSpanCount returns the number of finished spans held.
func (t *InMemoryTracer) FinishedSpanCount() int {
	return t.store.finishedCount()
}

// OnSpanEnd registers a handler called synchronously, in the ending
// goroutine, after a span's snapshot is recorded. Returns the handler ID.
func (t *InMemoryTracer) OnSpanEnd(handler SpanHandler) uint64 {
	return t.handlers.register(handler, false)
}

// OnSpanEndAsync registers a handler called asynchronously after a span's
// snapshot is recorded. Returns the handler ID.
func (t *InMemoryTracer) OnSpanEndAsync(handler SpanHandler) uint64 {
	return t.handlers.register(handler, true)
}

// RemoveHandler removes a handler by ID.
func (t *InMemoryTracer) RemoveHandler(id uint64) {
	t.handlers.remove(id)
}

// HasHandlers reports whether any completion handler is registered.
func (t *InMemoryTracer) HasHandlers() bool {
	return t.handlers.count() > 0
}

// EnableWorkerPool creates a bounded worker pool for async handlers.
// Without one, each async handler call runs in its own goroutine.
func (t *InMemoryTracer) EnableWorkerPool(workers, queueSize int) error {
	return t.handlers.enableWorkers(workers, queueSize)
}

// DroppedSnapshots returns the number of async handler calls dropped
// because the worker queue was full.
func (t *InMemoryTracer) DroppedSnapshots() uint64 {
	return t.handlers.dropped.Load()
}

// Close removes every handler, waits for in-flight async handlers and stops
// background identifier generation. Spans still active are logged; they
// remain queryable through ActiveSpanCount. Safe to call multiple times.
func (t *InMemoryTracer) Close() {
	t.closed.Do(func() {
		t.handlers.close()
		if t.pool != nil {
			t.pool.close()
		}
		if names := t.store.activeNames(); len(names) > 0 {
			t.logger.Warn("tracer closed with spans that never ended",
				zap.Int("active", len(names)),
				zap.Strings("operations", names))
		}
	})
}

// memorySpan is the Span implementation of InMemoryTracer.
//
//nolint:govet // Field order follows the span lifecycle for readability
type memorySpan struct {
	context    SpanContext
	name       string
	kind       SpanKind
	start      time.Time
	end        time.Time
	attributes Attributes
	status     Status
	events     []Event
	links      []SpanContext
	clock      clockz.Clock
	onEnd      func(*memorySpan, FinishedSpan)
	mu         sync.Mutex
	ended      bool
}

func (s *memorySpan) Context() SpanContext { return s.context }

func (s *memorySpan) OperationName() string { return s.name }

func (s *memorySpan) Attributes() Attributes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attributes.Clone()
}

func (s *memorySpan) SetAttribute(key string, value Attribute) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Don't modify finished spans.
	if s.ended {
		return
	}
	s.attributes.set(key, value)
}

func (s *memorySpan) SetAttributes(attrs Attributes) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.attributes.merge(attrs)
}

func (s *memorySpan) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.ended
}

func (s *memorySpan) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.status = status
}

func (s *memorySpan) AddEvent(event Event) {
	event.Attributes = event.Attributes.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.addEventLocked(event)
}

func (s *memorySpan) addEventLocked(event Event) {
	if event.Time.IsZero() {
		event.Time = s.clock.Now()
	}
	s.events = append(s.events, event)
}

func (s *memorySpan) AddLink(link SpanContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.links = append(s.links, link)
}

// RecordError appends the exception event and sets the error status in one
// critical section, so observers never see one without the other.
func (s *memorySpan) RecordError(err error, opts ...Option) {
	if err == nil {
		return
	}
	event := exceptionEvent(err, newSpanConfig(opts))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.addEventLocked(event)
	s.status = Status{Code: StatusError, Message: err.Error()}
}

func exceptionEvent(err error, cfg spanConfig) Event {
	attrs := NewAttributes(
		KeyValue{Key: ExceptionTypeKey, Value: String(fmt.Sprintf("%T", err))},
		KeyValue{Key: ExceptionMessageKey, Value: String(err.Error())},
	)
	attrs.Merge(cfg.attributes)
	return Event{Name: ExceptionEventName, Time: cfg.timestamp, Attributes: attrs}
}

// End finalizes the span. The ended check, the end timestamp and the
// snapshot are one critical section, so concurrent End calls produce
// exactly one snapshot.
func (s *memorySpan) End(opts ...Option) {
	cfg := newSpanConfig(opts)

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.end = cfg.timestamp
	if s.end.IsZero() {
		s.end = s.clock.Now()
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if s.onEnd != nil {
		s.onEnd(s, snapshot)
	}
}

func (s *memorySpan) snapshotLocked() FinishedSpan {
	return FinishedSpan{
		Context:    s.context,
		Name:       s.name,
		Kind:       s.kind,
		StartTime:  s.start,
		EndTime:    s.end,
		Duration:   s.end.Sub(s.start),
		Attributes: s.attributes,
		Status:     s.status,
		Events:     s.events,
		Links:      s.links,
	}.clone()
}
