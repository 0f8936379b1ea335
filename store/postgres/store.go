// Package postgres implements the gateway store on PostgreSQL via the Grove
// ORM, including a database-backed rate limit counter table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	gateway "github.com/speckit/gateway"
	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/ratelimit"
	gwstore "github.com/speckit/gateway/store"
	"github.com/speckit/gateway/subscription"
)

// compile-time interface checks
var (
	_ gwstore.Store     = (*Store)(nil)
	_ ratelimit.Sweeper = (*Store)(nil)
)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("gateway/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("gateway/postgres: migration failed: %w", err)
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

// ==================== Credential Store ====================

func (s *Store) CreateCredential(ctx context.Context, c *credential.Credential) error {
	m := toCredentialModel(c)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCredential(ctx context.Context, credID id.ID) (*credential.Credential, error) {
	m := new(credentialModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", credID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, gateway.ErrCredentialNotFound
		}
		return nil, err
	}
	return fromCredentialModel(m)
}

func (s *Store) GetCredentialBySecretHash(ctx context.Context, hash string) (*credential.Credential, error) {
	m := new(credentialModel)
	err := s.pg.NewSelect(m).
		Where("secret_hash = $1", hash).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, gateway.ErrCredentialNotFound
		}
		return nil, err
	}
	if credential.Status(m.Status) == credential.StatusRevoked {
		return nil, gateway.ErrCredentialRevoked
	}
	return fromCredentialModel(m)
}

func (s *Store) ListCredentials(ctx context.Context, tenantID string, opts credential.ListOpts) ([]*credential.Credential, error) {
	var models []credentialModel
	q := s.pg.NewSelect(&models).Where("tenant_id = $1", tenantID)

	if opts.Status != nil {
		q = q.Where("status = $2", string(*opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr(orderExpr(opts.SortField, opts.SortDesc))

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*credential.Credential, len(models))
	for i := range models {
		c, err := fromCredentialModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) RevokeCredential(ctx context.Context, credID id.ID) error {
	now := time.Now().UTC()
	res, err := s.pg.NewUpdate((*credentialModel)(nil)).
		Set("status = $1", string(credential.StatusRevoked)).
		Set("updated_at = $2", now).
		Where("id = $3", credID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return gateway.ErrCredentialNotFound
	}
	return nil
}

func (s *Store) TouchCredential(ctx context.Context, credID id.ID) error {
	now := time.Now().UTC()
	res, err := s.pg.NewUpdate((*credentialModel)(nil)).
		Set("last_used_at = $1", now).
		Set("updated_at = $2", now).
		Where("id = $3", credID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return gateway.ErrCredentialNotFound
	}
	return nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", subID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, gateway.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.pg.NewUpdate(m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return gateway.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.ID) error {
	res, err := s.pg.NewDelete((*subscriptionModel)(nil)).
		Where("id = $1", subID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return gateway.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, tenantID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models).Where("tenant_id = $1", tenantID)

	if opts.Status != nil {
		q = q.Where("status = $2", string(*opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr(orderExpr(opts.SortField, opts.SortDesc))

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) CountSubscriptions(ctx context.Context, tenantID string, opts subscription.ListOpts) (int, error) {
	q := s.pg.NewSelect((*subscriptionModel)(nil)).Where("tenant_id = $1", tenantID)
	if opts.Status != nil {
		q = q.Where("status = $2", string(*opts.Status))
	}
	count, err := q.Count(ctx)
	return int(count), err
}

func (s *Store) Match(ctx context.Context, tenantID, eventType string) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	if err := s.pg.NewSelect(&models).
		Where("tenant_id = $1", tenantID).
		Where("status = $2", string(subscription.StatusActive)).
		Where("events @> ARRAY[$3]", eventType).
		Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) RecordDeliverySummary(ctx context.Context, subID id.ID, status int, at time.Time) error {
	res, err := s.pg.NewUpdate((*subscriptionModel)(nil)).
		Set("last_delivery_at = $1", at).
		Set("last_delivery_status = $2", status).
		Set("updated_at = $3", time.Now().UTC()).
		Where("id = $4", subID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return gateway.ErrSubscriptionNotFound
	}
	return nil
}

// ==================== Sync Config Store ====================

func (s *Store) CreateSyncConfig(ctx context.Context, cfg *gitsync.Config) error {
	m := toSyncConfigModel(cfg)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetSyncConfig(ctx context.Context, cfgID id.ID) (*gitsync.Config, error) {
	m := new(syncConfigModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", cfgID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, gateway.ErrSyncConfigNotFound
		}
		return nil, err
	}
	return fromSyncConfigModel(m)
}

func (s *Store) UpdateSyncConfig(ctx context.Context, cfg *gitsync.Config) error {
	m := toSyncConfigModel(cfg)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.pg.NewUpdate(m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return gateway.ErrSyncConfigNotFound
	}
	return nil
}

func (s *Store) DeleteSyncConfig(ctx context.Context, cfgID id.ID) error {
	res, err := s.pg.NewDelete((*syncConfigModel)(nil)).
		Where("id = $1", cfgID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return gateway.ErrSyncConfigNotFound
	}
	return nil
}

func (s *Store) ListSyncConfigs(ctx context.Context, tenantID string, opts gitsync.ListOpts) ([]*gitsync.Config, error) {
	var models []syncConfigModel
	q := s.pg.NewSelect(&models).Where("tenant_id = $1", tenantID)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*gitsync.Config, len(models))
	for i := range models {
		cfg, err := fromSyncConfigModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = cfg
	}
	return result, nil
}

func (s *Store) SetSyncStatus(ctx context.Context, cfgID id.ID, status gitsync.Status, errMsg *string, at time.Time) error {
	q := s.pg.NewUpdate((*syncConfigModel)(nil)).
		Set("status = $1", string(status)).
		Set("last_sync_error = $2", errMsg).
		Set("updated_at = $3", time.Now().UTC())
	if at.IsZero() {
		q = q.Where("id = $4", cfgID.String())
	} else {
		q = q.Set("last_sync_at = $4", at).Where("id = $5", cfgID.String())
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return gateway.ErrSyncConfigNotFound
	}
	return nil
}

// ==================== Delivery Log Store ====================

func (s *Store) AppendDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetDelivery(ctx context.Context, deliveryID id.ID) (*delivery.Delivery, error) {
	m := new(deliveryModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", deliveryID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, gateway.ErrDeliveryNotFound
		}
		return nil, err
	}
	return fromDeliveryModel(m)
}

func (s *Store) ListDeliveries(ctx context.Context, subscriptionID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	var models []deliveryModel
	q := s.pg.NewSelect(&models).Where("subscription_id = $1", subscriptionID.String())

	if opts.Manual != nil {
		q = q.Where("manual = $2", *opts.Manual)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	dir := "DESC"
	if opts.SortAsc {
		dir = "ASC"
	}
	q = q.OrderExpr("attempted_at " + dir)

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*delivery.Delivery, len(models))
	for i := range models {
		d, err := fromDeliveryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = d
	}
	return result, nil
}

func (s *Store) CountDeliveries(ctx context.Context, subscriptionID id.ID, opts delivery.ListOpts) (int, error) {
	q := s.pg.NewSelect((*deliveryModel)(nil)).Where("subscription_id = $1", subscriptionID.String())
	if opts.Manual != nil {
		q = q.Where("manual = $2", *opts.Manual)
	}
	count, err := q.Count(ctx)
	return int(count), err
}

// ==================== Rate Counter Store ====================

func (s *Store) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	// Expired windows restart atomically in the upsert.
	var models []counterModel
	err := s.pg.NewRaw(`
		INSERT INTO gw_rate_counters (key, count, reset_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (key) DO UPDATE SET
			count    = CASE WHEN gw_rate_counters.reset_at <= NOW() THEN 1 ELSE gw_rate_counters.count + 1 END,
			reset_at = CASE WHEN gw_rate_counters.reset_at <= NOW() THEN $2 ELSE gw_rate_counters.reset_at END
		RETURNING *
	`, key, time.Now().UTC().Add(window)).Scan(ctx, &models)
	if err != nil {
		return 0, time.Time{}, err
	}
	if len(models) == 0 {
		return 0, time.Time{}, errors.New("gateway/postgres: increment counter returned no row")
	}
	return models[0].Count, models[0].ResetAt, nil
}

func (s *Store) Peek(ctx context.Context, key string) (int, time.Time, bool, error) {
	m := new(counterModel)
	err := s.pg.NewSelect(m).
		Where("key = $1", key).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, time.Time{}, false, nil
		}
		return 0, time.Time{}, false, err
	}
	if !m.ResetAt.After(time.Now().UTC()) {
		return 0, time.Time{}, false, nil
	}
	return m.Count, m.ResetAt, true, nil
}

// SweepEvery deletes expired counter rows on the given interval until ctx is
// cancelled.
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
			if _, err := s.pg.NewDelete((*counterModel)(nil)).
				Where("reset_at <= $1", time.Now().UTC()).
				Exec(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("rate counter sweep failed", "error", err)
			}
		}
	}
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// orderExpr maps a caller-selected sort onto a fixed column set. The HTTP
// layer whitelists field names, but unknown ones still fall back to
// created_at so no caller input reaches the SQL text.
func orderExpr(field string, desc bool) string {
	col := "created_at"
	if field == "name" {
		col = "name"
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}
