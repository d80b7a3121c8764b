package tracing

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

// useRecorder installs a tracer provider that records ended spans.
func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	m := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value.Emit()
	}
	return m
}

func TestStartSpan(t *testing.T) {
	recorder := useRecorder(t)

	ctx, end := StartSpan(context.Background(), "search", AttrSearchID.String("abc"))
	_, endChild := StartSpan(ctx, "search.rank")
	endChild(nil)
	end(errors.New("boom"))

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	child, parent := spans[0], spans[1]
	if child.Name() != "search.rank" || parent.Name() != "search" {
		t.Errorf("span names = %q, %q", child.Name(), parent.Name())
	}
	if child.Parent().SpanID() != parent.SpanContext().SpanID() {
		t.Error("child span is not parented to the search span")
	}
	if got := attrMap(parent)[AttrSearchID]; got != "abc" {
		t.Errorf("search id attribute = %q, want abc", got)
	}
	if parent.Status().Code != codes.Error || parent.Status().Description != "boom" {
		t.Errorf("parent status = %+v, want error boom", parent.Status())
	}
	if len(parent.Events()) == 0 {
		t.Error("expected RecordError to add an exception event")
	}
	if child.Status().Code == codes.Error {
		t.Error("child span marked as error")
	}
}

func TestStartLoadSpan(t *testing.T) {
	tests := []struct {
		source   string
		wantKind trace.SpanKind
		wantDB   bool
	}{
		{"file", trace.SpanKindInternal, false},
		{"s3", trace.SpanKindClient, false},
		{"postgres", trace.SpanKindClient, true},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			recorder := useRecorder(t)

			_, end := StartLoadSpan(context.Background(), tt.source, "providers")
			end(nil)

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			span := spans[0]
			if span.Name() != "load providers" {
				t.Errorf("span name = %q, want %q", span.Name(), "load providers")
			}
			if span.SpanKind() != tt.wantKind {
				t.Errorf("span kind = %v, want %v", span.SpanKind(), tt.wantKind)
			}

			attrs := attrMap(span)
			if attrs[AttrSourceKind] != tt.source || attrs[AttrSourceTable] != "providers" {
				t.Errorf("source attributes = %v", attrs)
			}
			if _, ok := attrs["db.system"]; ok != tt.wantDB {
				t.Errorf("db.system present = %v, want %v", ok, tt.wantDB)
			}
		})
	}
}

func TestAddEventAndSetAttributes(t *testing.T) {
	recorder := useRecorder(t)

	ctx, end := StartSpan(context.Background(), "search")
	SetAttributes(ctx, AttrResults.Int(3))
	AddEvent(ctx, "postal fallback", AttrPostalCode.String("10005"))
	end(nil)

	span := recorder.Ended()[0]
	if got := attrMap(span)[AttrResults]; got != "3" {
		t.Errorf("results attribute = %q, want 3", got)
	}
	events := span.Events()
	if len(events) != 1 || events[0].Name != "postal fallback" {
		t.Errorf("events = %+v", events)
	}
}

func TestHelpers_NoSpanInContext(t *testing.T) {
	// Must not panic without an active span.
	AddEvent(context.Background(), "event")
	SetAttributes(context.Background(), attribute.String("k", "v"))
}
