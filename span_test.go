package spanz

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

// errTimeout is a package-level error with a stable type name for assertions.
type errTimeout struct{}

func (errTimeout) Error() string { return "connection timed out" }

// fakeClock is the subset of the clockz fake clock the tests drive.
type fakeClock interface {
	clockz.Clock
	Advance(d time.Duration)
}

func newTestTracer(t *testing.T) (*InMemoryTracer, fakeClock) {
	t.Helper()
	clock := clockz.NewFakeClock()
	tracer := NewInMemoryTracer(WithClock(clock))
	t.Cleanup(tracer.Close)
	return tracer, clock
}

func TestSpanSetAttribute(t *testing.T) {
	tracer, _ := newTestTracer(t)
	span := tracer.StartSpan("cache.get", nil)

	span.SetAttribute("cache.key", String("user:1"))
	span.SetAttributes(NewAttributes(KeyValue{Key: "cache.hit", Value: Bool(false)}))

	attrs := span.Attributes()
	if attrs.Len() != 2 {
		t.Errorf("Expected 2 attributes, got %d", attrs.Len())
	}

	// Returned attributes are a copy.
	attrs.Set("leaked", Bool(true))
	if _, ok := span.Attributes().Get("leaked"); ok {
		t.Error("Expected Attributes() to return a copy")
	}
}

func TestSpanStartAttributesAndLinks(t *testing.T) {
	tracer, _ := newTestTracer(t)
	linked := NewRootSpanContext()

	span := tracer.StartSpan("queue.consume", nil,
		WithKind(SpanKindConsumer),
		WithAttributes(NewAttributes(KeyValue{Key: "messaging.system", Value: String("nats")})),
		WithLinks(linked),
	)
	span.End()

	finished := tracer.FinishedSpans()[0]
	if finished.Kind != SpanKindConsumer {
		t.Errorf("Expected consumer kind, got %s", finished.Kind)
	}
	if _, ok := finished.Attributes.Get("messaging.system"); !ok {
		t.Error("Expected start attributes on snapshot")
	}
	if len(finished.Links) != 1 || finished.Links[0] != linked {
		t.Errorf("Expected one link to %+v, got %+v", linked, finished.Links)
	}
}

func TestSpanEndIdempotent(t *testing.T) {
	tracer, clock := newTestTracer(t)
	span := tracer.StartSpan("db.query", nil)

	clock.Advance(25 * time.Millisecond)
	span.End()
	first := tracer.FinishedSpans()

	clock.Advance(time.Second)
	span.End()
	span.End(WithTimestamp(clock.Now()))
	second := tracer.FinishedSpans()

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("Expected exactly one finished span, got %d then %d", len(first), len(second))
	}
	if !first[0].EndTime.Equal(second[0].EndTime) {
		t.Error("Expected second End to leave the snapshot unchanged")
	}
	if first[0].Duration != 25*time.Millisecond {
		t.Errorf("Expected duration 25ms, got %v", first[0].Duration)
	}
	if span.IsRecording() {
		t.Error("Expected span not to be recording after End")
	}
}

func TestSpanEndWithTimestamp(t *testing.T) {
	tracer, clock := newTestTracer(t)
	start := clock.Now()
	span := tracer.StartSpan("http.request", nil, WithTimestamp(start))

	end := start.Add(150 * time.Millisecond)
	span.End(WithTimestamp(end))

	finished := tracer.FinishedSpans()[0]
	if !finished.StartTime.Equal(start) || !finished.EndTime.Equal(end) {
		t.Errorf("Unexpected timestamps %v - %v", finished.StartTime, finished.EndTime)
	}
	if finished.Duration != 150*time.Millisecond {
		t.Errorf("Expected 150ms, got %v", finished.Duration)
	}
}

func TestSpanMutationAfterEnd(t *testing.T) {
	tracer, _ := newTestTracer(t)
	span := tracer.StartSpan("db.query", nil)
	span.SetAttribute("db.system", String("postgresql"))
	span.End()

	before := tracer.FinishedSpans()[0]

	// None of these may panic or change the snapshot.
	span.SetAttribute("db.system", String("mysql"))
	span.SetAttributes(NewAttributes(KeyValue{Key: "late", Value: Bool(true)}))
	span.SetStatus(Status{Code: StatusError, Message: "late"})
	span.AddEvent(NewEvent("late", Attributes{}))
	span.AddLink(NewRootSpanContext())
	span.RecordError(errors.New("late"))

	after := tracer.FinishedSpans()[0]
	if !after.Attributes.Equal(before.Attributes) {
		t.Error("Expected attributes to be unchanged after End")
	}
	if after.Status != before.Status {
		t.Errorf("Expected status unchanged, got %+v", after.Status)
	}
	if len(after.Events) != 0 || len(after.Links) != 0 {
		t.Error("Expected no events or links after End")
	}
	if span.Attributes().Len() != 1 {
		t.Error("Expected live attributes to be unchanged after End")
	}
}

func TestSpanStatusLastWriteWins(t *testing.T) {
	tracer, _ := newTestTracer(t)
	span := tracer.StartSpan("op", nil)
	span.SetStatus(Status{Code: StatusError, Message: "first"})
	span.SetStatus(Status{Code: StatusOK})
	span.End()

	if got := tracer.FinishedSpans()[0].Status; got.Code != StatusOK || got.Message != "" {
		t.Errorf("Expected ok status, got %+v", got)
	}
}

func TestSpanStatusUnsetByDefault(t *testing.T) {
	tracer, _ := newTestTracer(t)
	tracer.StartSpan("op", nil).End()

	if got := tracer.FinishedSpans()[0].Status.Code; got != StatusUnset {
		t.Errorf("Expected unset status, got %s", got)
	}
}

func TestSpanAddEventDefaultsTime(t *testing.T) {
	tracer, clock := newTestTracer(t)
	span := tracer.StartSpan("op", nil)

	clock.Advance(time.Millisecond)
	span.AddEvent(NewEvent("cache.miss", NewAttributes(KeyValue{Key: "key", Value: String("k")})))
	explicit := clock.Now().Add(time.Hour)
	span.AddEvent(Event{Name: "explicit", Time: explicit})
	span.End()

	events := tracer.FinishedSpans()[0].Events
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if !events[0].Time.Equal(clock.Now()) {
		t.Errorf("Expected event time from clock, got %v", events[0].Time)
	}
	if !events[1].Time.Equal(explicit) {
		t.Errorf("Expected explicit event time, got %v", events[1].Time)
	}
}

func TestSpanRecordError(t *testing.T) {
	tracer, clock := newTestTracer(t)
	span := tracer.StartSpan("http.request", nil)

	at := clock.Now().Add(5 * time.Millisecond)
	span.RecordError(errTimeout{},
		WithAttributes(NewAttributes(KeyValue{Key: "retry", Value: Int32(2)})),
		WithTimestamp(at))
	span.End()

	finished := tracer.FinishedSpans()[0]
	if finished.Status.Code != StatusError || finished.Status.Message != "connection timed out" {
		t.Errorf("Unexpected status %+v", finished.Status)
	}

	exceptions := finished.EventsNamed(ExceptionEventName)
	if len(exceptions) != 1 {
		t.Fatalf("Expected one exception event, got %d", len(exceptions))
	}
	event := exceptions[0]
	if !event.Time.Equal(at) {
		t.Errorf("Expected exception at %v, got %v", at, event.Time)
	}
	typ, _ := event.Attributes.Get(ExceptionTypeKey)
	if s, _ := typ.AsString(); s != "spanz.errTimeout" {
		t.Errorf("Expected exception type spanz.errTimeout, got %s", s)
	}
	msg, _ := event.Attributes.Get(ExceptionMessageKey)
	if s, _ := msg.AsString(); s != "connection timed out" {
		t.Errorf("Unexpected exception message %s", s)
	}
	if _, ok := event.Attributes.Get("retry"); !ok {
		t.Error("Expected caller attributes merged into exception event")
	}
}

func TestSpanRecordErrorMatchesManualCalls(t *testing.T) {
	tracer, _ := newTestTracer(t)
	err := fmt.Errorf("wrapped: %w", errTimeout{})

	sugar := tracer.StartSpan("sugar", nil)
	sugar.RecordError(err)
	sugar.End()

	manual := tracer.StartSpan("manual", nil)
	manual.AddEvent(NewEvent(ExceptionEventName, NewAttributes(
		KeyValue{Key: ExceptionTypeKey, Value: String(fmt.Sprintf("%T", err))},
		KeyValue{Key: ExceptionMessageKey, Value: String(err.Error())},
	)))
	manual.SetStatus(Status{Code: StatusError, Message: err.Error()})
	manual.End()

	spans := tracer.FinishedSpans()
	a, b := spans[0], spans[1]
	if a.Status != b.Status {
		t.Errorf("Expected identical status, got %+v and %+v", a.Status, b.Status)
	}
	if len(a.Events) != 1 || len(b.Events) != 1 {
		t.Fatalf("Expected one event each, got %d and %d", len(a.Events), len(b.Events))
	}
	if a.Events[0].Name != b.Events[0].Name || !a.Events[0].Attributes.Equal(b.Events[0].Attributes) {
		t.Error("Expected identical exception events")
	}
}

func TestSpanRecordNilError(t *testing.T) {
	tracer, _ := newTestTracer(t)
	span := tracer.StartSpan("op", nil)
	span.RecordError(nil)
	span.End()

	finished := tracer.FinishedSpans()[0]
	if len(finished.Events) != 0 || finished.Status.Code != StatusUnset {
		t.Error("Expected nil error to be ignored")
	}
}

func TestConcurrentSpanMutation(t *testing.T) {
	tracer, _ := newTestTracer(t)
	span := tracer.StartSpan("op", nil)

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			span.SetAttribute(fmt.Sprintf("key-%d", i), Int64(int64(i)))
			span.AddEvent(NewEvent(fmt.Sprintf("event-%d", i), Attributes{}))
			span.AddLink(NewRootSpanContext())
		}(i)
	}
	wg.Wait()
	span.End()

	finished := tracer.FinishedSpans()[0]
	if finished.Attributes.Len() != goroutines {
		t.Errorf("Expected %d attributes, got %d", goroutines, finished.Attributes.Len())
	}
	if len(finished.Events) != goroutines || len(finished.Links) != goroutines {
		t.Errorf("Expected %d events and links, got %d and %d", goroutines, len(finished.Events), len(finished.Links))
	}
}

func TestConcurrentEndSingleSnapshot(t *testing.T) {
	tracer, _ := newTestTracer(t)

	for round := 0; round < 20; round++ {
		span := tracer.StartSpan("contended", nil)

		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				span.End()
			}()
		}
		close(start)
		wg.Wait()
	}

	if got := len(tracer.FinishedSpans()); got != 20 {
		t.Errorf("Expected 20 snapshots, got %d", got)
	}
	if tracer.ActiveSpanCount() != 0 {
		t.Errorf("Expected no active spans, got %d", tracer.ActiveSpanCount())
	}
}

func TestFinishedSpanCopiesAreIndependent(t *testing.T) {
	tracer, _ := newTestTracer(t)
	span := tracer.StartSpan("op", nil)
	span.SetAttribute("k", String("v"))
	span.AddEvent(NewEvent("e", NewAttributes(KeyValue{Key: "ek", Value: String("ev")})))
	span.AddLink(NewRootSpanContext())
	span.End()

	copyA := tracer.FinishedSpans()[0]
	copyA.Attributes.Set("k", String("mutated"))
	copyA.Events[0].Attributes.Set("ek", String("mutated"))
	copyA.Links[0] = SpanContext{}

	copyB := tracer.FinishedSpans()[0]
	if v, _ := copyB.Attributes.Get("k"); v.String() != "v" {
		t.Error("Expected stored attributes to be unaffected by caller mutation")
	}
	if v, _ := copyB.Events[0].Attributes.Get("ek"); v.String() != "ev" {
		t.Error("Expected stored event attributes to be unaffected by caller mutation")
	}
	if !copyB.Links[0].IsValid() {
		t.Error("Expected stored links to be unaffected by caller mutation")
	}
}

func TestSpanKindAndStatusStrings(t *testing.T) {
	kinds := map[SpanKind]string{
		SpanKindInternal: "internal",
		SpanKindClient:   "client",
		SpanKindServer:   "server",
		SpanKindProducer: "producer",
		SpanKindConsumer: "consumer",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("Expected %s, got %s", want, k.String())
		}
	}
	if StatusError.String() != "error" || StatusOK.String() != "ok" || StatusUnset.String() != "unset" {
		t.Error("Unexpected status code names")
	}
}
