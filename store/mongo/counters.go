package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/speckit/gateway/ratelimit"
)

// Increment bumps the window counter for key. The pipeline update restarts
// an expired window and extends a live one in a single atomic operation.
func (s *Store) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	t := now()
	nextReset := t.Add(window)

	expired := bson.M{"$lte": bson.A{bson.M{"$ifNull": bson.A{"$reset_at", t}}, t}}
	update := bson.A{bson.M{"$set": bson.M{
		"count": bson.M{"$cond": bson.A{
			expired,
			1,
			bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$count", 0}}, 1}},
		}},
		"reset_at": bson.M{"$cond": bson.A{
			expired,
			nextReset,
			"$reset_at",
		}},
	}}}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var m counterModel
	err := s.mdb.Collection(colCounters).
		FindOneAndUpdate(ctx, bson.M{"_id": key}, update, opts).
		Decode(&m)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("gateway/mongo: increment counter: %w", err)
	}

	return m.Count, m.ResetAt, nil
}

// Peek returns the current count and reset time without incrementing.
func (s *Store) Peek(ctx context.Context, key string) (int, time.Time, bool, error) {
	var m counterModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": key}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, time.Time{}, false, nil
		}

		return 0, time.Time{}, false, fmt.Errorf("gateway/mongo: peek counter: %w", err)
	}

	if !m.ResetAt.After(now()) {
		return 0, time.Time{}, false, nil
	}

	return m.Count, m.ResetAt, true, nil
}

// SweepEvery deletes expired counter documents on the given interval until
// ctx is cancelled.
func (s *Store) SweepEvery(ctx context.Context, interval time.Duration) {
	if interval < ratelimit.MinSweepInterval {
		interval = ratelimit.MinSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.mdb.Collection(colCounters).
				DeleteMany(ctx, bson.M{"reset_at": bson.M{"$lte": now()}}); err != nil && ctx.Err() == nil {
				slog.Warn("rate counter sweep failed", "error", err)
			}
		}
	}
}
