package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	gateway "github.com/speckit/gateway"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
	"github.com/speckit/gateway/subscription"
)

// subscriptionModel is the JSON representation stored in Redis.
type subscriptionModel struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenant_id"`
	Name               string     `json:"name"`
	URL                string     `json:"url"`
	Events             []string   `json:"events"`
	PayloadFields      []string   `json:"payload_fields,omitempty"`
	Secret             string     `json:"secret"`
	Status             string     `json:"status"`
	LastDeliveryAt     *time.Time `json:"last_delivery_at,omitempty"`
	LastDeliveryStatus *int       `json:"last_delivery_status,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toSubscriptionModel(sub *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:                 sub.ID.String(),
		TenantID:           sub.TenantID,
		Name:               sub.Name,
		URL:                sub.URL,
		Events:             sub.Events,
		PayloadFields:      sub.PayloadFields,
		Secret:             sub.Secret,
		Status:             string(sub.Status),
		LastDeliveryAt:     sub.LastDeliveryAt,
		LastDeliveryStatus: sub.LastDeliveryStatus,
		CreatedAt:          sub.CreatedAt,
		UpdatedAt:          sub.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.ID, err)
	}
	return &subscription.Subscription{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 subID,
		TenantID:           m.TenantID,
		Name:               m.Name,
		URL:                m.URL,
		Events:             m.Events,
		PayloadFields:      m.PayloadFields,
		Secret:             m.Secret,
		Status:             subscription.Status(m.Status),
		LastDeliveryAt:     m.LastDeliveryAt,
		LastDeliveryStatus: m.LastDeliveryStatus,
	}, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	key := entityKey(prefixSubscription, m.ID)

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("gateway/redis: create subscription: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zSubTenant+m.TenantID, goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID})
	if subscription.Status(m.Status) == subscription.StatusActive {
		pipe.SAdd(ctx, activeSetKey(m.TenantID), m.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("gateway/redis: create subscription indexes: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error) {
	var m subscriptionModel
	if err := s.getEntity(ctx, entityKey(prefixSubscription, subID.String()), &m); err != nil {
		if isNotFound(err) {
			return nil, gateway.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("gateway/redis: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	key := entityKey(prefixSubscription, sub.ID.String())

	var existing subscriptionModel
	if err := s.getEntity(ctx, key, &existing); err != nil {
		if isNotFound(err) {
			return gateway.ErrSubscriptionNotFound
		}
		return fmt.Errorf("gateway/redis: update subscription get: %w", err)
	}

	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("gateway/redis: update subscription: %w", err)
	}

	if subscription.Status(m.Status) == subscription.StatusActive {
		s.rdb.SAdd(ctx, activeSetKey(m.TenantID), m.ID)
	} else {
		s.rdb.SRem(ctx, activeSetKey(m.TenantID), m.ID)
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.ID) error {
	key := entityKey(prefixSubscription, subID.String())

	var m subscriptionModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isNotFound(err) {
			return gateway.ErrSubscriptionNotFound
		}
		return fmt.Errorf("gateway/redis: delete subscription get: %w", err)
	}

	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("gateway/redis: delete subscription: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZRem(ctx, zSubTenant+m.TenantID, m.ID)
	pipe.SRem(ctx, activeSetKey(m.TenantID), m.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("gateway/redis: delete subscription indexes: %w", err)
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, tenantID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	result, err := s.filterSubscriptions(ctx, tenantID, opts)
	if err != nil {
		return nil, err
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CountSubscriptions(ctx context.Context, tenantID string, opts subscription.ListOpts) (int, error) {
	result, err := s.filterSubscriptions(ctx, tenantID, opts)
	if err != nil {
		return 0, err
	}
	return len(result), nil
}

func (s *Store) filterSubscriptions(ctx context.Context, tenantID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	ids, err := s.rdb.ZRange(ctx, zSubTenant+tenantID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("gateway/redis: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, 0, len(ids))
	for _, entryID := range ids {
		var m subscriptionModel
		if err := s.getEntity(ctx, entityKey(prefixSubscription, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if opts.Status != nil && subscription.Status(m.Status) != *opts.Status {
			continue
		}
		sub, err := fromSubscriptionModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}

	// The tenant zset is scored by creation time, so results arrive in
	// created order; re-sort only when the caller asks for another field.
	if opts.SortField != "" || opts.SortDesc {
		sort.SliceStable(result, func(i, j int) bool {
			a, b := result[i], result[j]
			if opts.SortDesc {
				a, b = b, a
			}
			if opts.SortField == "name" {
				return a.Name < b.Name
			}
			return a.CreatedAt.Before(b.CreatedAt)
		})
	}
	return result, nil
}

func (s *Store) Match(ctx context.Context, tenantID, eventType string) ([]*subscription.Subscription, error) {
	ids, err := s.rdb.SMembers(ctx, activeSetKey(tenantID)).Result()
	if err != nil {
		return nil, fmt.Errorf("gateway/redis: match subscriptions: %w", err)
	}

	var result []*subscription.Subscription
	for _, entryID := range ids {
		var m subscriptionModel
		if err := s.getEntity(ctx, entityKey(prefixSubscription, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		sub, err := fromSubscriptionModel(&m)
		if err != nil {
			return nil, err
		}
		if sub.Status == subscription.StatusActive && sub.Subscribed(eventType) {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (s *Store) RecordDeliverySummary(ctx context.Context, subID id.ID, status int, at time.Time) error {
	key := entityKey(prefixSubscription, subID.String())

	var m subscriptionModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isNotFound(err) {
			return gateway.ErrSubscriptionNotFound
		}
		return fmt.Errorf("gateway/redis: record delivery summary get: %w", err)
	}

	m.LastDeliveryAt = &at
	m.LastDeliveryStatus = &status
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, key, &m); err != nil {
		return fmt.Errorf("gateway/redis: record delivery summary: %w", err)
	}
	return nil
}
