package gitsync

import (
	"context"
	"time"

	"github.com/speckit/gateway/id"
)

// Store defines the persistence contract for sync configs.
type Store interface {
	// CreateSyncConfig persists a new sync config.
	CreateSyncConfig(ctx context.Context, cfg *Config) error

	// GetSyncConfig returns a sync config by ID.
	GetSyncConfig(ctx context.Context, cfgID id.ID) (*Config, error)

	// UpdateSyncConfig modifies an existing sync config.
	UpdateSyncConfig(ctx context.Context, cfg *Config) error

	// DeleteSyncConfig removes a sync config.
	DeleteSyncConfig(ctx context.Context, cfgID id.ID) error

	// ListSyncConfigs returns sync configs for a tenant.
	ListSyncConfigs(ctx context.Context, tenantID string, opts ListOpts) ([]*Config, error)

	// SetSyncStatus transitions a config's sync state. errMsg is nil on any
	// non-error transition, which also clears a previously stored error.
	// at stamps LastSyncAt for terminal transitions; pass the zero time to
	// leave the stamp untouched (the syncing transition).
	SetSyncStatus(ctx context.Context, cfgID id.ID, status Status, errMsg *string, at time.Time) error
}
