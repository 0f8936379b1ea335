package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/speckit/gateway"

// Tracer provides OpenTelemetry tracing for the gateway.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new gateway tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartDeliverySpan starts a new span for a webhook delivery attempt.
func (t *Tracer) StartDeliverySpan(ctx context.Context, deliveryID, eventID, subscriptionID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "gateway.delivery",
		trace.WithAttributes(
			attribute.String("gateway.delivery_id", deliveryID),
			attribute.String("gateway.event_id", eventID),
			attribute.String("gateway.subscription_id", subscriptionID),
		),
	)
}

// EndDeliverySpan ends a delivery span with result attributes.
func (t *Tracer) EndDeliverySpan(span trace.Span, statusCode, latencyMs int, err string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int("gateway.latency_ms", latencyMs),
	)
	if err != "" {
		span.SetAttributes(attribute.String("gateway.error", err))
	}
	span.End()
}

// StartSyncSpan starts a new span for a remote sync push.
func (t *Tracer) StartSyncSpan(ctx context.Context, syncConfigID, repo string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "gateway.sync",
		trace.WithAttributes(
			attribute.String("gateway.sync_config_id", syncConfigID),
			attribute.String("gateway.repo", repo),
		),
	)
}

// EndSyncSpan ends a sync span with the outcome.
func (t *Tracer) EndSyncSpan(span trace.Span, outcome string, err string) {
	span.SetAttributes(attribute.String("gateway.outcome", outcome))
	if err != "" {
		span.SetAttributes(attribute.String("gateway.error", err))
	}
	span.End()
}
