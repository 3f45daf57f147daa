// Package telemetry wraps OpenTelemetry tracing for barkeep services.
//
// Spans go to the global tracer provider. Until a provider is installed the
// global one is a no-op, so services can always trace unconditionally.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer names, one per service package.
const (
	TracerIAM     = "barkeepapi/services/iam"
	TracerCatalog = "barkeepapi/services/catalog"
)

// Common attribute keys
const (
	AttrSubject      = "user.subject"
	AttrRole         = "user.role"
	AttrUserCreated  = "user.created"
	AttrDrinkID      = "drink.id"
	AttrDrinkName    = "drink.name"
	AttrDrinkFilter  = "drink.filter"
	AttrDrinkLimit   = "drink.limit"
	AttrResultCount  = "result.count"
	AttrCacheHit     = "cache.hit"
	AttrSearchQuery  = "search.query"
	AttrDeleteResult = "delete.modified"
)

// StartSpan starts a span for a service operation.
//
//	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerCatalog, "catalog.GetDrink",
//	    attribute.String(telemetry.AttrDrinkID, id),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError marks the span as failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
