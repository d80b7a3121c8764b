package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope of every span started here.
const tracerName = "github.com/onnwee/nearcare"

// Attribute keys shared by search and load spans.
const (
	AttrSearchID    = attribute.Key("nearcare.search_id")
	AttrPostalCode  = attribute.Key("nearcare.postal_code")
	AttrCandidates  = attribute.Key("nearcare.candidates")
	AttrResults     = attribute.Key("nearcare.results")
	AttrFallback    = attribute.Key("nearcare.postal_fallback")
	AttrSourceKind  = attribute.Key("nearcare.source")
	AttrSourceTable = attribute.Key("nearcare.table")
)

// StartSpan starts a span named name as a child of any span in ctx.
// The returned function ends it, recording err when non-nil.
//
// Example usage:
//
//	ctx, endSpan := tracing.StartSpan(ctx, "search.rank")
//	defer func() { endSpan(err) }()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, endFunc(span)
}

// StartLoadSpan starts a span for reading one table from a dataset source,
// e.g. "load providers" with source "s3".
func StartLoadSpan(ctx context.Context, source, table string) (context.Context, func(error)) {
	kind := trace.SpanKindInternal
	attrs := []attribute.KeyValue{
		AttrSourceKind.String(source),
		AttrSourceTable.String(table),
	}
	switch source {
	case "postgres":
		kind = trace.SpanKindClient
		attrs = append(attrs,
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", "query"),
			attribute.String("db.sql.table", table),
		)
	case "s3":
		kind = trace.SpanKindClient
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "load "+table,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
	return ctx, endFunc(span)
}

func endFunc(span trace.Span) func(error) {
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
