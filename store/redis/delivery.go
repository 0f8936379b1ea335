package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	gateway "github.com/speckit/gateway"
	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
)

// deliveryModel is the JSON representation stored in Redis.
type deliveryModel struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	TenantID       string    `json:"tenant_id"`
	StatusCode     int       `json:"status_code"`
	Error          string    `json:"error,omitempty"`
	Response       string    `json:"response,omitempty"`
	LatencyMs      int       `json:"latency_ms"`
	Manual         bool      `json:"manual"`
	AttemptedAt    time.Time `json:"attempted_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toDeliveryModel(d *delivery.Delivery) *deliveryModel {
	return &deliveryModel{
		ID:             d.ID.String(),
		SubscriptionID: d.SubscriptionID.String(),
		EventID:        d.EventID.String(),
		EventType:      d.EventType,
		TenantID:       d.TenantID,
		StatusCode:     d.StatusCode,
		Error:          d.Error,
		Response:       d.Response,
		LatencyMs:      d.LatencyMs,
		Manual:         d.Manual,
		AttemptedAt:    d.AttemptedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func fromDeliveryModel(m *deliveryModel) (*delivery.Delivery, error) {
	delID, err := id.ParseDeliveryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.ID, err)
	}
	subID, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.SubscriptionID, err)
	}
	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}
	return &delivery.Delivery{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             delID,
		SubscriptionID: subID,
		EventID:        evtID,
		EventType:      m.EventType,
		TenantID:       m.TenantID,
		StatusCode:     m.StatusCode,
		Error:          m.Error,
		Response:       m.Response,
		LatencyMs:      m.LatencyMs,
		Manual:         m.Manual,
		AttemptedAt:    m.AttemptedAt,
	}, nil
}

func (s *Store) AppendDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	key := entityKey(prefixDelivery, m.ID)

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("gateway/redis: append delivery: %w", err)
	}

	if err := s.rdb.ZAdd(ctx, zDeliverySub+m.SubscriptionID, goredis.Z{
		Score:  scoreFromTime(m.AttemptedAt),
		Member: m.ID,
	}).Err(); err != nil {
		return fmt.Errorf("gateway/redis: append delivery index: %w", err)
	}
	return nil
}

func (s *Store) GetDelivery(ctx context.Context, deliveryID id.ID) (*delivery.Delivery, error) {
	var m deliveryModel
	if err := s.getEntity(ctx, entityKey(prefixDelivery, deliveryID.String()), &m); err != nil {
		if isNotFound(err) {
			return nil, gateway.ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("gateway/redis: get delivery: %w", err)
	}
	return fromDeliveryModel(&m)
}

func (s *Store) ListDeliveries(ctx context.Context, subscriptionID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	result, err := s.filterDeliveries(ctx, subscriptionID, opts)
	if err != nil {
		return nil, err
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CountDeliveries(ctx context.Context, subscriptionID id.ID, opts delivery.ListOpts) (int, error) {
	result, err := s.filterDeliveries(ctx, subscriptionID, opts)
	if err != nil {
		return 0, err
	}
	return len(result), nil
}

// filterDeliveries returns the subscription's log newest first, or oldest
// first when opts.SortAsc is set.
func (s *Store) filterDeliveries(ctx context.Context, subscriptionID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	zkey := zDeliverySub + subscriptionID.String()
	var ids []string
	var err error
	if opts.SortAsc {
		ids, err = s.rdb.ZRange(ctx, zkey, 0, -1).Result()
	} else {
		ids, err = s.rdb.ZRevRange(ctx, zkey, 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("gateway/redis: list deliveries: %w", err)
	}

	result := make([]*delivery.Delivery, 0, len(ids))
	for _, entryID := range ids {
		var m deliveryModel
		if err := s.getEntity(ctx, entityKey(prefixDelivery, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if opts.Manual != nil && m.Manual != *opts.Manual {
			continue
		}
		d, err := fromDeliveryModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}
