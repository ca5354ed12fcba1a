package emit

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (*OTelEmitter, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return NewOTelEmitter(tp.Tracer("test")), exporter
}

func attrValue(span tracetest.SpanStub, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOTelEmitter(t *testing.T) {
	t.Run("span per event", func(t *testing.T) {
		emitter, exporter := newTestTracer(t)

		emitter.Emit(Event{
			RunID:  "run-9",
			Step:   3,
			NodeID: "audit",
			Msg:    "node_start",
			Meta:   map[string]interface{}{"visits": 1},
		})

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("spans = %d, want 1", len(spans))
		}
		span := spans[0]
		if span.Name != "node_start" {
			t.Errorf("name = %q, want node_start", span.Name)
		}

		if v, ok := attrValue(span, "stategraph.run_id"); !ok || v.AsString() != "run-9" {
			t.Errorf("run_id attribute = %v, %v", v, ok)
		}
		if v, ok := attrValue(span, "stategraph.step"); !ok || v.AsInt64() != 3 {
			t.Errorf("step attribute = %v, %v", v, ok)
		}
		if v, ok := attrValue(span, "stategraph.node_id"); !ok || v.AsString() != "audit" {
			t.Errorf("node_id attribute = %v, %v", v, ok)
		}
		if v, ok := attrValue(span, "visits"); !ok || v.AsInt64() != 1 {
			t.Errorf("visits attribute = %v, %v", v, ok)
		}
	})

	t.Run("error meta sets span status", func(t *testing.T) {
		emitter, exporter := newTestTracer(t)

		emitter.Emit(Event{
			RunID: "run-9",
			Msg:   "run_failed",
			Meta:  map[string]interface{}{"error": "node audit: boom"},
		})

		spans := exporter.GetSpans()
		if len(spans) != 1 {
			t.Fatalf("spans = %d, want 1", len(spans))
		}
		span := spans[0]
		if span.Status.Code != codes.Error {
			t.Errorf("status = %v, want Error", span.Status.Code)
		}
		if span.Status.Description != "node audit: boom" {
			t.Errorf("description = %q", span.Status.Description)
		}
		if len(span.Events) == 0 {
			t.Error("no recorded error event on span")
		}
	})

	t.Run("non-primitive meta stringified", func(t *testing.T) {
		emitter, exporter := newTestTracer(t)

		emitter.Emit(Event{
			RunID: "run-9",
			Msg:   "node_end",
			Meta:  map[string]interface{}{"tags": []string{"a", "b"}},
		})

		span := exporter.GetSpans()[0]
		if v, ok := attrValue(span, "tags"); !ok || v.AsString() != "[a b]" {
			t.Errorf("tags attribute = %v, %v", v, ok)
		}
	})
}
