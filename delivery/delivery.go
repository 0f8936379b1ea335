// Package delivery fans domain events out to matching webhook subscriptions:
// payload filtering, HMAC signing, the HTTPS push, and outcome bookkeeping.
package delivery

import (
	"time"

	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
)

// Event is a domain event submitted for fan-out.
type Event struct {
	// ID is the unique TypeID for this event. Assigned on publish.
	ID id.ID `json:"id"`

	// Type is the dot-separated event type name from the catalog vocabulary.
	Type string `json:"type"`

	// TenantID identifies the tenant the event belongs to.
	TenantID string `json:"tenant_id"`

	// OccurredAt is when the event happened. Defaults to publish time.
	OccurredAt time.Time `json:"occurred_at"`

	// Data is the event payload. Top-level fields are subject to each
	// subscription's payload-field filter.
	Data map[string]any `json:"data"`
}

// Delivery records one attempted push to a subscription. Appended to the
// delivery log on every attempt; the subscription itself only keeps the
// rolling last-delivery summary.
type Delivery struct {
	entity.Entity

	// ID is the unique TypeID for this delivery.
	ID id.ID `json:"id"`

	// SubscriptionID references the target subscription.
	SubscriptionID id.ID `json:"subscription_id"`

	// EventID references the delivered event.
	EventID id.ID `json:"event_id"`

	// EventType is the event type name, denormalized for filtering.
	EventType string `json:"event_type"`

	// TenantID identifies the owning tenant.
	TenantID string `json:"tenant_id"`

	// StatusCode is the HTTP status of the attempt. 0 records a transport
	// failure (timeout, connection refused, DNS).
	StatusCode int `json:"status_code"`

	// Error is the transport error message, empty on an HTTP response.
	Error string `json:"error,omitempty"`

	// Response is the response body, capped at 1KB.
	Response string `json:"response,omitempty"`

	// LatencyMs is the attempt latency in milliseconds.
	LatencyMs int `json:"latency_ms"`

	// Manual marks deliveries produced by the test trigger.
	Manual bool `json:"manual"`

	// AttemptedAt is when the push was made.
	AttemptedAt time.Time `json:"attempted_at"`
}

// Succeeded reports whether the attempt got a 2xx response.
func (d *Delivery) Succeeded() bool {
	return d.StatusCode >= 200 && d.StatusCode < 300
}

// Result holds the raw outcome of a single HTTP push.
type Result struct {
	StatusCode int
	Error      string
	Response   string
	LatencyMs  int
}

// ListOpts configures filtering, ordering and pagination for delivery log
// listing. SortAsc flips the default newest-first order by attempted_at.
type ListOpts struct {
	Offset  int
	Limit   int
	Manual  *bool
	SortAsc bool
}
