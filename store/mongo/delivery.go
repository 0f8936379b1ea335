package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	gateway "github.com/speckit/gateway"
	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/id"
)

// AppendDelivery records one delivery attempt.
func (s *Store) AppendDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)

	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: append delivery: %w", err)
	}

	return nil
}

// GetDelivery returns a delivery record by ID.
func (s *Store) GetDelivery(ctx context.Context, deliveryID id.ID) (*delivery.Delivery, error) {
	var m deliveryModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": deliveryID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, gateway.ErrDeliveryNotFound
		}

		return nil, fmt.Errorf("gateway/mongo: get delivery: %w", err)
	}

	return fromDeliveryModel(&m)
}

// ListDeliveries returns the delivery log for a subscription, newest first
// unless opts.SortAsc flips the order.
func (s *Store) ListDeliveries(ctx context.Context, subscriptionID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	var models []deliveryModel

	dir := -1
	if opts.SortAsc {
		dir = 1
	}

	q := s.mdb.NewFind(&models).
		Filter(deliveryFilter(subscriptionID, opts)).
		Sort(bson.D{{Key: "attempted_at", Value: dir}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gateway/mongo: list deliveries: %w", err)
	}

	result := make([]*delivery.Delivery, 0, len(models))

	for i := range models {
		d, err := fromDeliveryModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, d)
	}

	return result, nil
}

// CountDeliveries returns the number of log records under the list filter.
func (s *Store) CountDeliveries(ctx context.Context, subscriptionID id.ID, opts delivery.ListOpts) (int, error) {
	count, err := s.mdb.NewFind((*deliveryModel)(nil)).
		Filter(deliveryFilter(subscriptionID, opts)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gateway/mongo: count deliveries: %w", err)
	}

	return int(count), nil
}

func deliveryFilter(subscriptionID id.ID, opts delivery.ListOpts) bson.M {
	filter := bson.M{"subscription_id": subscriptionID.String()}
	if opts.Manual != nil {
		filter["manual"] = *opts.Manual
	}

	return filter
}
