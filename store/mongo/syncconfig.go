package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	gateway "github.com/speckit/gateway"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/id"
)

// CreateSyncConfig persists a new sync config.
func (s *Store) CreateSyncConfig(ctx context.Context, cfg *gitsync.Config) error {
	m := toSyncConfigModel(cfg)

	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: create sync config: %w", err)
	}

	return nil
}

// GetSyncConfig returns a sync config by ID.
func (s *Store) GetSyncConfig(ctx context.Context, cfgID id.ID) (*gitsync.Config, error) {
	var m syncConfigModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": cfgID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, gateway.ErrSyncConfigNotFound
		}

		return nil, fmt.Errorf("gateway/mongo: get sync config: %w", err)
	}

	return fromSyncConfigModel(&m)
}

// UpdateSyncConfig modifies an existing sync config.
func (s *Store) UpdateSyncConfig(ctx context.Context, cfg *gitsync.Config) error {
	m := toSyncConfigModel(cfg)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: update sync config: %w", err)
	}

	if res.MatchedCount() == 0 {
		return gateway.ErrSyncConfigNotFound
	}

	return nil
}

// DeleteSyncConfig removes a sync config.
func (s *Store) DeleteSyncConfig(ctx context.Context, cfgID id.ID) error {
	res, err := s.mdb.NewDelete((*syncConfigModel)(nil)).
		Filter(bson.M{"_id": cfgID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: delete sync config: %w", err)
	}

	if res.DeletedCount() == 0 {
		return gateway.ErrSyncConfigNotFound
	}

	return nil
}

// ListSyncConfigs returns sync configs for a tenant.
func (s *Store) ListSyncConfigs(ctx context.Context, tenantID string, opts gitsync.ListOpts) ([]*gitsync.Config, error) {
	var models []syncConfigModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID}).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gateway/mongo: list sync configs: %w", err)
	}

	result := make([]*gitsync.Config, 0, len(models))

	for i := range models {
		cfg, err := fromSyncConfigModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, cfg)
	}

	return result, nil
}

// SetSyncStatus transitions a config's sync state.
func (s *Store) SetSyncStatus(ctx context.Context, cfgID id.ID, status gitsync.Status, errMsg *string, at time.Time) error {
	q := s.mdb.NewUpdate((*syncConfigModel)(nil)).
		Filter(bson.M{"_id": cfgID.String()}).
		Set("status", string(status)).
		Set("last_sync_error", errMsg).
		Set("updated_at", now())

	if !at.IsZero() {
		q = q.Set("last_sync_at", at)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: set sync status: %w", err)
	}

	if res.MatchedCount() == 0 {
		return gateway.ErrSyncConfigNotFound
	}

	return nil
}
