package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the gateway store.
// It can be registered with the grove extension for orchestrated migration
// management (locking, version tracking, rollback support).
var Migrations = migrate.NewGroup("gateway")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_gw_credentials",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gw_credentials (
    id              TEXT PRIMARY KEY,
    key_prefix      TEXT NOT NULL DEFAULT '',
    secret_hash     TEXT NOT NULL UNIQUE,
    tenant_id       TEXT NOT NULL DEFAULT '',
    name            TEXT NOT NULL DEFAULT '',
    tier            TEXT NOT NULL DEFAULT 'free',
    allowed_origins TEXT[] NOT NULL DEFAULT '{}',
    status          TEXT NOT NULL DEFAULT 'active',
    last_used_at    TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_gw_credentials_tenant ON gw_credentials (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gw_credentials`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_gw_subscriptions",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gw_subscriptions (
    id                   TEXT PRIMARY KEY,
    tenant_id            TEXT NOT NULL DEFAULT '',
    name                 TEXT NOT NULL DEFAULT '',
    url                  TEXT NOT NULL DEFAULT '',
    events               TEXT[] NOT NULL DEFAULT '{}',
    payload_fields       TEXT[] NOT NULL DEFAULT '{}',
    secret               TEXT NOT NULL DEFAULT '',
    status               TEXT NOT NULL DEFAULT 'active',
    last_delivery_at     TIMESTAMPTZ,
    last_delivery_status INT,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_gw_subscriptions_tenant ON gw_subscriptions (tenant_id);
CREATE INDEX IF NOT EXISTS idx_gw_subscriptions_active ON gw_subscriptions (tenant_id) WHERE status = 'active';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gw_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_gw_sync_configs",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gw_sync_configs (
    id              TEXT PRIMARY KEY,
    tenant_id       TEXT NOT NULL DEFAULT '',
    repo            TEXT NOT NULL DEFAULT '',
    path            TEXT NOT NULL DEFAULT '',
    branch          TEXT NOT NULL DEFAULT '',
    auto_sync       BOOLEAN NOT NULL DEFAULT FALSE,
    status          TEXT NOT NULL DEFAULT 'idle',
    last_sync_at    TIMESTAMPTZ,
    last_sync_error TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_gw_sync_configs_tenant ON gw_sync_configs (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gw_sync_configs`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_gw_deliveries",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gw_deliveries (
    id              TEXT PRIMARY KEY,
    subscription_id TEXT NOT NULL DEFAULT '',
    event_id        TEXT NOT NULL DEFAULT '',
    event_type      TEXT NOT NULL DEFAULT '',
    tenant_id       TEXT NOT NULL DEFAULT '',
    status_code     INT NOT NULL DEFAULT 0,
    error           TEXT NOT NULL DEFAULT '',
    response        TEXT NOT NULL DEFAULT '',
    latency_ms      INT NOT NULL DEFAULT 0,
    manual          BOOLEAN NOT NULL DEFAULT FALSE,
    attempted_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_gw_deliveries_subscription ON gw_deliveries (subscription_id, attempted_at DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gw_deliveries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_gw_rate_counters",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS gw_rate_counters (
    key      TEXT PRIMARY KEY,
    count    INT NOT NULL DEFAULT 0,
    reset_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS gw_rate_counters`)
				return err
			},
		},
	)
}
