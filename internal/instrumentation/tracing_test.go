package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrValue(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func TestStartSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "calendar.refresh", attribute.String("k", "v"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Name() != "calendar.refresh" {
		t.Errorf("span name = %q", ended[0].Name())
	}
	if v, _ := attrValue(ended[0].Attributes(), "k"); v != "v" {
		t.Errorf("attribute k = %q, want v", v)
	}
}

func TestStartToolSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartToolSpan(context.Background(), "group_calendar_list_events")
	span.End()

	s := recorder.Ended()[0]
	if s.Name() != "tool.group_calendar_list_events" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", s.SpanKind())
	}
	if v, _ := attrValue(s.Attributes(), SpanAttrTool); v != "group_calendar_list_events" {
		t.Errorf("%s = %q", SpanAttrTool, v)
	}
}

func TestStartGraphSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartGraphSpan(context.Background(), ResourceEvents, OperationCreate,
		attribute.String(SpanAttrGroupID, "g-1"))
	EndSpan(span, nil)

	s := recorder.Ended()[0]
	if s.Name() != "graph.events.create" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", s.SpanKind())
	}
	if v, _ := attrValue(s.Attributes(), SpanAttrGroupID); v != "g-1" {
		t.Errorf("%s = %q", SpanAttrGroupID, v)
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestEndSpan_Error(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "op")
	EndSpan(span, errors.New("boom"))

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "boom" {
		t.Errorf("status = %+v, want error boom", s.Status())
	}
	if len(s.Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "op")
	SetSpanError(span, nil)
	span.End()

	if recorder.Ended()[0].Status().Code != codes.Unset {
		t.Error("nil error should leave the status unset")
	}
}

func TestGetTraceAndSpanID(t *testing.T) {
	if GetTraceID(context.Background()) != "" {
		t.Error("expected empty trace id without a span")
	}
	if GetSpanID(context.Background()) != "" {
		t.Error("expected empty span id without a span")
	}

	withRecorder(t)
	ctx, span := StartSpan(context.Background(), "op")
	defer span.End()

	if len(GetTraceID(ctx)) != 32 {
		t.Errorf("trace id = %q, want 32 hex chars", GetTraceID(ctx))
	}
	if len(GetSpanID(ctx)) != 16 {
		t.Errorf("span id = %q, want 16 hex chars", GetSpanID(ctx))
	}
}
