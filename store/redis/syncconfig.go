package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	gateway "github.com/speckit/gateway"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
)

// syncConfigModel is the JSON representation stored in Redis.
type syncConfigModel struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Repo          string     `json:"repo"`
	Path          string     `json:"path"`
	Branch        string     `json:"branch"`
	AutoSync      bool       `json:"auto_sync"`
	Status        string     `json:"status"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	LastSyncError *string    `json:"last_sync_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toSyncConfigModel(cfg *gitsync.Config) *syncConfigModel {
	return &syncConfigModel{
		ID:            cfg.ID.String(),
		TenantID:      cfg.TenantID,
		Repo:          cfg.Repo,
		Path:          cfg.Path,
		Branch:        cfg.Branch,
		AutoSync:      cfg.AutoSync,
		Status:        string(cfg.Status),
		LastSyncAt:    cfg.LastSyncAt,
		LastSyncError: cfg.LastSyncError,
		CreatedAt:     cfg.CreatedAt,
		UpdatedAt:     cfg.UpdatedAt,
	}
}

func fromSyncConfigModel(m *syncConfigModel) (*gitsync.Config, error) {
	cfgID, err := id.ParseSyncConfigID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse sync config ID %q: %w", m.ID, err)
	}
	return &gitsync.Config{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            cfgID,
		TenantID:      m.TenantID,
		Repo:          m.Repo,
		Path:          m.Path,
		Branch:        m.Branch,
		AutoSync:      m.AutoSync,
		Status:        gitsync.Status(m.Status),
		LastSyncAt:    m.LastSyncAt,
		LastSyncError: m.LastSyncError,
	}, nil
}

func (s *Store) CreateSyncConfig(ctx context.Context, cfg *gitsync.Config) error {
	m := toSyncConfigModel(cfg)
	key := entityKey(prefixSyncConfig, m.ID)

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("gateway/redis: create sync config: %w", err)
	}

	if err := s.rdb.ZAdd(ctx, zSyncTenant+m.TenantID, goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID}).Err(); err != nil {
		return fmt.Errorf("gateway/redis: create sync config index: %w", err)
	}
	return nil
}

func (s *Store) GetSyncConfig(ctx context.Context, cfgID id.ID) (*gitsync.Config, error) {
	var m syncConfigModel
	if err := s.getEntity(ctx, entityKey(prefixSyncConfig, cfgID.String()), &m); err != nil {
		if isNotFound(err) {
			return nil, gateway.ErrSyncConfigNotFound
		}
		return nil, fmt.Errorf("gateway/redis: get sync config: %w", err)
	}
	return fromSyncConfigModel(&m)
}

func (s *Store) UpdateSyncConfig(ctx context.Context, cfg *gitsync.Config) error {
	key := entityKey(prefixSyncConfig, cfg.ID.String())

	var existing syncConfigModel
	if err := s.getEntity(ctx, key, &existing); err != nil {
		if isNotFound(err) {
			return gateway.ErrSyncConfigNotFound
		}
		return fmt.Errorf("gateway/redis: update sync config get: %w", err)
	}

	m := toSyncConfigModel(cfg)
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("gateway/redis: update sync config: %w", err)
	}
	return nil
}

func (s *Store) DeleteSyncConfig(ctx context.Context, cfgID id.ID) error {
	key := entityKey(prefixSyncConfig, cfgID.String())

	var m syncConfigModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isNotFound(err) {
			return gateway.ErrSyncConfigNotFound
		}
		return fmt.Errorf("gateway/redis: delete sync config get: %w", err)
	}

	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("gateway/redis: delete sync config: %w", err)
	}
	if err := s.rdb.ZRem(ctx, zSyncTenant+m.TenantID, m.ID).Err(); err != nil {
		return fmt.Errorf("gateway/redis: delete sync config index: %w", err)
	}
	return nil
}

func (s *Store) ListSyncConfigs(ctx context.Context, tenantID string, opts gitsync.ListOpts) ([]*gitsync.Config, error) {
	ids, err := s.rdb.ZRange(ctx, zSyncTenant+tenantID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("gateway/redis: list sync configs: %w", err)
	}

	result := make([]*gitsync.Config, 0, len(ids))
	for _, entryID := range ids {
		var m syncConfigModel
		if err := s.getEntity(ctx, entityKey(prefixSyncConfig, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		cfg, err := fromSyncConfigModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) SetSyncStatus(ctx context.Context, cfgID id.ID, status gitsync.Status, errMsg *string, at time.Time) error {
	key := entityKey(prefixSyncConfig, cfgID.String())

	var m syncConfigModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isNotFound(err) {
			return gateway.ErrSyncConfigNotFound
		}
		return fmt.Errorf("gateway/redis: set sync status get: %w", err)
	}

	m.Status = string(status)
	m.LastSyncError = errMsg
	if !at.IsZero() {
		stamped := at
		m.LastSyncAt = &stamped
	}
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, key, &m); err != nil {
		return fmt.Errorf("gateway/redis: set sync status: %w", err)
	}
	return nil
}
