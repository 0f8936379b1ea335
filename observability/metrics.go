// Package observability holds the metric instruments and OpenTelemetry
// tracing used across the gateway.
package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds metric instruments for the gateway, backed by any go-utils
// MetricFactory.
type Metrics struct {
	RequestsTotal    gu.Counter
	RateLimitedTotal gu.Counter
	DeliveriesTotal  gu.Counter
	DeliveryLatency  gu.Histogram
	SyncPushesTotal  gu.Counter
	ActiveDeliveries gu.Gauge
}

// NewMetrics creates gateway metric instruments using the supplied factory.
// Pass metrics.NewMetricsCollector() for standalone usage.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		RequestsTotal:    factory.Counter("gateway_requests_total"),
		RateLimitedTotal: factory.Counter("gateway_rate_limited_total"),
		DeliveriesTotal:  factory.Counter("gateway_deliveries_total"),
		DeliveryLatency:  factory.Histogram("gateway_delivery_latency_seconds"),
		SyncPushesTotal:  factory.Counter("gateway_sync_pushes_total"),
		ActiveDeliveries: factory.Gauge("gateway_active_deliveries"),
	}
}

// RecordRequest records one gated API request by outcome.
func (m *Metrics) RecordRequest(outcome string) {
	m.RequestsTotal.WithLabels(map[string]string{"outcome": outcome}).Inc()
}

// RecordRateLimited records one request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited(tier string) {
	m.RateLimitedTotal.WithLabels(map[string]string{"tier": tier}).Inc()
}

// RecordDelivery records a delivery attempt with the given status and latency.
func (m *Metrics) RecordDelivery(status string, latencySeconds float64) {
	m.DeliveriesTotal.WithLabels(map[string]string{"status": status}).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}

// RecordSyncPush records one remote sync push by outcome.
func (m *Metrics) RecordSyncPush(outcome string) {
	m.SyncPushesTotal.WithLabels(map[string]string{"outcome": outcome}).Inc()
}
