package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	gateway "github.com/speckit/gateway"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/subscription"
)

// CreateSubscription persists a new subscription.
func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)

	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: create subscription: %w", err)
	}

	return nil
}

// GetSubscription returns a subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error) {
	var m subscriptionModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, gateway.ErrSubscriptionNotFound
		}

		return nil, fmt.Errorf("gateway/mongo: get subscription: %w", err)
	}

	return fromSubscriptionModel(&m)
}

// UpdateSubscription modifies an existing subscription.
func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: update subscription: %w", err)
	}

	if res.MatchedCount() == 0 {
		return gateway.ErrSubscriptionNotFound
	}

	return nil
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(ctx context.Context, subID id.ID) error {
	res, err := s.mdb.NewDelete((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": subID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: delete subscription: %w", err)
	}

	if res.DeletedCount() == 0 {
		return gateway.ErrSubscriptionNotFound
	}

	return nil
}

// ListSubscriptions returns subscriptions for a tenant, optionally filtered.
func (s *Store) ListSubscriptions(ctx context.Context, tenantID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	filter := listFilter(tenantID, opts)

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(sortSpec(opts.SortField, opts.SortDesc))

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gateway/mongo: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, 0, len(models))

	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, sub)
	}

	return result, nil
}

// CountSubscriptions returns the total count under the list filter.
func (s *Store) CountSubscriptions(ctx context.Context, tenantID string, opts subscription.ListOpts) (int, error) {
	count, err := s.mdb.NewFind((*subscriptionModel)(nil)).
		Filter(listFilter(tenantID, opts)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gateway/mongo: count subscriptions: %w", err)
	}

	return int(count), nil
}

func listFilter(tenantID string, opts subscription.ListOpts) bson.M {
	filter := bson.M{"tenant_id": tenantID}
	if opts.Status != nil {
		filter["status"] = string(*opts.Status)
	}

	return filter
}

// Match finds all active subscriptions containing eventType for a tenant.
func (s *Store) Match(ctx context.Context, tenantID, eventType string) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	if err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"tenant_id": tenantID,
			"status":    string(subscription.StatusActive),
			"events":    eventType,
		}).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("gateway/mongo: match subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, 0, len(models))

	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, sub)
	}

	return result, nil
}

// RecordDeliverySummary updates the rolling last-delivery summary.
func (s *Store) RecordDeliverySummary(ctx context.Context, subID id.ID, status int, at time.Time) error {
	res, err := s.mdb.NewUpdate((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": subID.String()}).
		Set("last_delivery_at", at).
		Set("last_delivery_status", status).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: record delivery summary: %w", err)
	}

	if res.MatchedCount() == 0 {
		return gateway.ErrSubscriptionNotFound
	}

	return nil
}
