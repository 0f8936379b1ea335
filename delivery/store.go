package delivery

import (
	"context"

	"github.com/speckit/gateway/id"
)

// LogStore is the append-only persistence required by the delivery engine.
// Every attempt is appended here; the rolling last-delivery summary lives on
// the subscription record and is written through subscription.Store.
type LogStore interface {
	// AppendDelivery records one delivery attempt.
	AppendDelivery(ctx context.Context, d *Delivery) error

	// GetDelivery returns a delivery record by ID.
	GetDelivery(ctx context.Context, deliveryID id.ID) (*Delivery, error)

	// ListDeliveries returns the delivery log for a subscription, newest
	// first.
	ListDeliveries(ctx context.Context, subscriptionID id.ID, opts ListOpts) ([]*Delivery, error)

	// CountDeliveries returns the number of log records for a subscription
	// matching the opts filter.
	CountDeliveries(ctx context.Context, subscriptionID id.ID, opts ListOpts) (int, error)
}
