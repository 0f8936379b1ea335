package subscription

import (
	"context"
	"time"

	"github.com/speckit/gateway/id"
)

// Store defines the persistence contract for webhook subscriptions.
type Store interface {
	// CreateSubscription persists a new subscription.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// GetSubscription returns a subscription by ID.
	GetSubscription(ctx context.Context, subID id.ID) (*Subscription, error)

	// UpdateSubscription modifies an existing subscription.
	UpdateSubscription(ctx context.Context, sub *Subscription) error

	// DeleteSubscription removes a subscription.
	DeleteSubscription(ctx context.Context, subID id.ID) error

	// ListSubscriptions returns subscriptions for a tenant.
	ListSubscriptions(ctx context.Context, tenantID string, opts ListOpts) ([]*Subscription, error)

	// CountSubscriptions returns the total subscription count for a tenant
	// under the same filter as ListSubscriptions.
	CountSubscriptions(ctx context.Context, tenantID string, opts ListOpts) (int, error)

	// Match finds all active subscriptions for a tenant whose event set
	// contains eventType. This is the delivery fan-out hot path.
	Match(ctx context.Context, tenantID string, eventType string) ([]*Subscription, error)

	// RecordDeliverySummary updates the rolling last-delivery summary.
	// status is nil only before the first delivery; a transport failure is
	// recorded as 0.
	RecordDeliverySummary(ctx context.Context, subID id.ID, status int, at time.Time) error
}
