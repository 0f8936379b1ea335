// Package mongo implements the gateway store on MongoDB via the Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/speckit/gateway/ratelimit"
	gwstore "github.com/speckit/gateway/store"
)

// Collection name constants.
const (
	colCredentials  = "gw_credentials"
	colSubscription = "gw_subscriptions"
	colSyncConfigs  = "gw_sync_configs"
	colDeliveries   = "gw_deliveries"
	colCounters     = "gw_rate_counters"
)

// Compile-time interface checks.
var (
	_ gwstore.Store     = (*Store)(nil)
	_ ratelimit.Sweeper = (*Store)(nil)
)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all gateway collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}

		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("gateway/mongo: migrate %s indexes: %w", col, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// sortSpec maps a caller-selected sort onto a fixed field set. Unknown
// fields fall back to created_at.
func sortSpec(field string, desc bool) bson.D {
	key := "created_at"
	if field == "name" {
		key = "name"
	}
	dir := 1
	if desc {
		dir = -1
	}
	return bson.D{{Key: key, Value: dir}}
}

// migrationIndexes returns the index definitions for all gateway collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCredentials: {
			{
				Keys:    bson.D{{Key: "secret_hash", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colSubscription: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colSyncConfigs: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colDeliveries: {
			{Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "attempted_at", Value: -1}}},
		},
		colCounters: {
			{Keys: bson.D{{Key: "reset_at", Value: 1}}},
		},
	}
}
