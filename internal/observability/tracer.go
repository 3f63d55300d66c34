package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a client span for an outgoing platform call.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError marks the span as errored.
func SetSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Attribute keys used on SDK spans.
var (
	AttrUserID    = attribute.Key("space.user_id")
	AttrFeatureID = attribute.Key("space.feature_id")
	AttrMethod    = attribute.Key("space.http.method")
	AttrPath      = attribute.Key("space.http.path")
	AttrStatus    = attribute.Key("space.http.status")
	AttrCacheHit  = attribute.Key("space.cache_hit")
	AttrRequestID = attribute.Key("space.request_id")
)
