package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer names under which spans are emitted. The db tracer carries
// store-level spans, the pipeline tracer carries match-run spans.
const (
	tracerNameDB       = "kindred/db"
	tracerNamePipeline = "kindred/match"
)

// DBOperation classifies a store call for span naming and attributes.
type DBOperation string

const (
	DBOperationQuery  DBOperation = "query"
	DBOperationInsert DBOperation = "insert"
	DBOperationUpdate DBOperation = "update"
	DBOperationDelete DBOperation = "delete"
	DBOperationExec   DBOperation = "exec"
)

// endFunc closes a span, recording err as the span status when non-nil.
type endFunc func(error)

func spanCloser(span trace.Span) endFunc {
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// StartDBSpan opens a client span around one store call. The span is
// named "<operation> <table>" ("query profiles", "exec match_records").
//
//	ctx, end := tracing.StartDBSpan(ctx, "match_records", tracing.DBOperationExec)
//	defer func() { end(err) }()
func StartDBSpan(ctx context.Context, table string, operation DBOperation) (context.Context, func(error)) {
	name := string(operation)
	if table != "" {
		name += " " + table
	}

	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", string(operation)),
	}
	if table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", table))
	}

	ctx, span := otel.Tracer(tracerNameDB).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, spanCloser(span)
}

// StartRunSpan opens the root span of one match run for a subject.
// Pipeline stages and store spans started from the returned context
// nest under it.
func StartRunSpan(ctx context.Context, subjectID string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerNamePipeline).Start(ctx, "match.run",
		trace.WithAttributes(attribute.String("match.subject_id", subjectID)),
	)
	return ctx, spanCloser(span)
}

// StartSpan opens a span for an internal operation such as a scoring
// or weight-adaptation stage.
func StartSpan(ctx context.Context, name string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerNamePipeline).Start(ctx, name)
	return ctx, spanCloser(span)
}

// AddEvent records an event on the span active in ctx.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the span active in ctx.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
