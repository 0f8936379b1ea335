// Package subscription manages a tenant's webhook subscriptions: validated
// CRUD, once-only secret issuance, and the rolling last-delivery summary.
package subscription

import (
	"errors"
	"time"

	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
)

// ErrDisabled is returned when the status toggle is applied to a terminally
// disabled subscription.
var ErrDisabled = errors.New("subscription: disabled is terminal for the status toggle")

// Status is the lifecycle state of a subscription.
type Status string

const (
	// StatusActive means the subscription receives deliveries.
	StatusActive Status = "active"

	// StatusPaused suspends deliveries; the caller may resume via toggle.
	StatusPaused Status = "paused"

	// StatusDisabled is terminal for the toggle operation: only an explicit
	// administrative action reaches it, and only an edit leaves it.
	StatusDisabled Status = "disabled"
)

// Subscription is a tenant's declared interest in domain events.
type Subscription struct {
	entity.Entity

	// ID is the unique TypeID for this subscription.
	ID id.ID `json:"id"`

	// TenantID identifies the owning tenant.
	TenantID string `json:"tenant_id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// URL is the delivery target. Scheme is always https.
	URL string `json:"url"`

	// Events is the ordered set of subscribed event types. Never empty
	// while the subscription is active.
	Events []string `json:"events"`

	// PayloadFields is an optional allow-list of top-level payload field
	// names. Empty means no filtering.
	PayloadFields []string `json:"payload_fields,omitempty"`

	// Secret is the HMAC signing secret. Generated once at creation,
	// returned once, never serialized afterward.
	Secret string `json:"-"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// LastDeliveryAt is the rolling summary timestamp of the most recent
	// delivery attempt. Full history lives in the delivery log.
	LastDeliveryAt *time.Time `json:"last_delivery_at,omitempty"`

	// LastDeliveryStatus is the HTTP status of the most recent attempt.
	// Nil before the first delivery; 0 records a transport failure.
	LastDeliveryStatus *int `json:"last_delivery_status,omitempty"`
}

// Subscribed reports whether eventType is in the subscription's event set.
func (s *Subscription) Subscribed(eventType string) bool {
	for _, e := range s.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// ListOpts configures filtering, ordering and pagination for subscription
// listing. SortField holds a snake_case field name ("created_at", "name");
// empty means created_at ascending.
type ListOpts struct {
	Offset    int
	Limit     int
	Status    *Status
	SortField string
	SortDesc  bool
}
