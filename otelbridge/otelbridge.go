// Package otelbridge converts spanz snapshots into OpenTelemetry SDK
// read-only spans, so spans recorded in memory can be inspected with
// OpenTelemetry test tooling. It converts values only; nothing is exported.
package otelbridge

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/zoobzio/spanz"
)

// ScopeName is the instrumentation scope stamped on converted spans.
const ScopeName = "github.com/zoobzio/spanz"

// SpanContext converts sc's trace and span ids. The parent id is not part of
// an OpenTelemetry span context; see Stub for parent conversion.
func SpanContext(sc spanz.SpanContext) (trace.SpanContext, error) {
	return spanContext(sc.TraceID, sc.SpanID)
}

func spanContext(traceID, spanID string) (trace.SpanContext, error) {
	tid, err := trace.TraceIDFromHex(traceID)
	if err != nil {
		return trace.SpanContext{}, fmt.Errorf("otelbridge: trace id %q: %w", traceID, err)
	}
	sid, err := trace.SpanIDFromHex(spanID)
	if err != nil {
		return trace.SpanContext{}, fmt.Errorf("otelbridge: span id %q: %w", spanID, err)
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
	}), nil
}

// SpanKind maps a spanz kind onto its OpenTelemetry equivalent.
func SpanKind(kind spanz.SpanKind) trace.SpanKind {
	switch kind {
	case spanz.SpanKindClient:
		return trace.SpanKindClient
	case spanz.SpanKindServer:
		return trace.SpanKindServer
	case spanz.SpanKindProducer:
		return trace.SpanKindProducer
	case spanz.SpanKindConsumer:
		return trace.SpanKindConsumer
	default:
		return trace.SpanKindInternal
	}
}

// StatusCode maps a spanz status code onto its OpenTelemetry equivalent.
func StatusCode(code spanz.StatusCode) codes.Code {
	switch code {
	case spanz.StatusOK:
		return codes.Ok
	case spanz.StatusError:
		return codes.Error
	default:
		return codes.Unset
	}
}

// KeyValues converts attrs in insertion order. int32 values widen to int64.
func KeyValues(attrs spanz.Attributes) []attribute.KeyValue {
	if attrs.Len() == 0 {
		return nil
	}
	kvs := make([]attribute.KeyValue, 0, attrs.Len())
	attrs.Range(func(key string, value spanz.Attribute) bool {
		if kv, ok := keyValue(key, value); ok {
			kvs = append(kvs, kv)
		}
		return true
	})
	return kvs
}

func keyValue(key string, value spanz.Attribute) (attribute.KeyValue, bool) {
	switch value.Type() {
	case spanz.AttributeInt32:
		v, _ := value.AsInt32()
		return attribute.Int64(key, int64(v)), true
	case spanz.AttributeInt64:
		v, _ := value.AsInt64()
		return attribute.Int64(key, v), true
	case spanz.AttributeFloat64:
		v, _ := value.AsFloat64()
		return attribute.Float64(key, v), true
	case spanz.AttributeString:
		v, _ := value.AsString()
		return attribute.String(key, v), true
	case spanz.AttributeBool:
		v, _ := value.AsBool()
		return attribute.Bool(key, v), true
	case spanz.AttributeInt32Slice:
		v, _ := value.AsInt32Slice()
		wide := make([]int64, len(v))
		for i, n := range v {
			wide[i] = int64(n)
		}
		return attribute.Int64Slice(key, wide), true
	case spanz.AttributeInt64Slice:
		v, _ := value.AsInt64Slice()
		return attribute.Int64Slice(key, v), true
	case spanz.AttributeFloat64Slice:
		v, _ := value.AsFloat64Slice()
		return attribute.Float64Slice(key, v), true
	case spanz.AttributeStringSlice:
		v, _ := value.AsStringSlice()
		return attribute.StringSlice(key, v), true
	case spanz.AttributeBoolSlice:
		v, _ := value.AsBoolSlice()
		return attribute.BoolSlice(key, v), true
	default:
		return attribute.KeyValue{}, false
	}
}

// Stub converts a finished span into an OpenTelemetry span stub.
// It fails if any identifier is not hex of the OpenTelemetry width, which
// only happens with a custom spanz.IDGenerator.
func Stub(span spanz.FinishedSpan) (tracetest.SpanStub, error) {
	sc, err := SpanContext(span.Context)
	if err != nil {
		return tracetest.SpanStub{}, err
	}

	var parent trace.SpanContext
	if span.HasParent() {
		parent, err = spanContext(span.Context.TraceID, span.Context.ParentSpanID)
		if err != nil {
			return tracetest.SpanStub{}, err
		}
	}

	events := make([]sdktrace.Event, 0, len(span.Events))
	for _, e := range span.Events {
		events = append(events, sdktrace.Event{
			Name:       e.Name,
			Time:       e.Time,
			Attributes: KeyValues(e.Attributes),
		})
	}

	links := make([]sdktrace.Link, 0, len(span.Links))
	for _, l := range span.Links {
		lsc, err := SpanContext(l)
		if err != nil {
			return tracetest.SpanStub{}, fmt.Errorf("otelbridge: link: %w", err)
		}
		links = append(links, sdktrace.Link{SpanContext: lsc})
	}

	return tracetest.SpanStub{
		Name:        span.Name,
		SpanContext: sc,
		Parent:      parent,
		SpanKind:    SpanKind(span.Kind),
		StartTime:   span.StartTime,
		EndTime:     span.EndTime,
		Attributes:  KeyValues(span.Attributes),
		Events:      events,
		Links:       links,
		Status: sdktrace.Status{
			Code:        StatusCode(span.Status.Code),
			Description: span.Status.Message,
		},
		InstrumentationScope: instrumentation.Scope{Name: ScopeName},
	}, nil
}

// Snapshot converts a finished span into a ReadOnlySpan.
func Snapshot(span spanz.FinishedSpan) (sdktrace.ReadOnlySpan, error) {
	stub, err := Stub(span)
	if err != nil {
		return nil, err
	}
	return stub.Snapshot(), nil
}

// Snapshots converts spans in order, stopping at the first failure.
func Snapshots(spans []spanz.FinishedSpan) ([]sdktrace.ReadOnlySpan, error) {
	result := make([]sdktrace.ReadOnlySpan, 0, len(spans))
	for _, s := range spans {
		ro, err := Snapshot(s)
		if err != nil {
			return nil, fmt.Errorf("otelbridge: span %q: %w", s.Name, err)
		}
		result = append(result, ro)
	}
	return result, nil
}
