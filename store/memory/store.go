// Package memory provides an in-memory Store implementation for unit testing
// and single-instance setups.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/speckit/gateway"
	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/ratelimit"
	gwstore "github.com/speckit/gateway/store"
	"github.com/speckit/gateway/subscription"
)

// compile-time interface check.
var _ gwstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	credentials       map[string]*credential.Credential     // keyed by ID string
	credentialsByHash map[string]*credential.Credential     // keyed by secret hash
	subscriptions     map[string]*subscription.Subscription // keyed by ID string
	syncConfigs       map[string]*gitsync.Config            // keyed by ID string
	deliveries        map[string]*delivery.Delivery         // keyed by ID string
	deliveryLog       []*delivery.Delivery                  // append order

	counters *ratelimit.MemoryCounters

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		credentials:       make(map[string]*credential.Credential),
		credentialsByHash: make(map[string]*credential.Credential),
		subscriptions:     make(map[string]*subscription.Subscription),
		syncConfigs:       make(map[string]*gitsync.Config),
		deliveries:        make(map[string]*delivery.Delivery),
		counters:          ratelimit.NewMemoryCounters(),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return gateway.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// credential.Store
// ──────────────────────────────────────────────────

// CreateCredential persists a new credential.
func (s *Store) CreateCredential(_ context.Context, c *credential.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.credentials[c.ID.String()] = c
	s.credentialsByHash[c.SecretHash] = c
	return nil
}

// GetCredential returns a credential by ID.
func (s *Store) GetCredential(_ context.Context, credID id.ID) (*credential.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentials[credID.String()]
	if !ok {
		return nil, gateway.ErrCredentialNotFound
	}
	return c, nil
}

// GetCredentialBySecretHash resolves a presented secret's hash. A revoked
// credential resolves to ErrCredentialRevoked, not to not-found, so the
// caller can distinguish the two without a second lookup.
func (s *Store) GetCredentialBySecretHash(_ context.Context, hash string) (*credential.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentialsByHash[hash]
	if !ok {
		return nil, gateway.ErrCredentialNotFound
	}
	if c.Status == credential.StatusRevoked {
		return nil, gateway.ErrCredentialRevoked
	}
	return c, nil
}

// ListCredentials returns credentials for a tenant.
func (s *Store) ListCredentials(_ context.Context, tenantID string, opts credential.ListOpts) ([]*credential.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*credential.Credential, 0, len(s.credentials))
	for _, c := range s.credentials {
		if c.TenantID != tenantID {
			continue
		}
		if opts.Status != nil && c.Status != *opts.Status {
			continue
		}
		result = append(result, c)
	}

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

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// RevokeCredential marks a credential revoked.
func (s *Store) RevokeCredential(_ context.Context, credID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[credID.String()]
	if !ok {
		return gateway.ErrCredentialNotFound
	}
	c.Status = credential.StatusRevoked
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// TouchCredential stamps the credential's last-used time.
func (s *Store) TouchCredential(_ context.Context, credID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[credID.String()]
	if !ok {
		return gateway.ErrCredentialNotFound
	}
	now := time.Now().UTC()
	c.LastUsedAt = &now
	return nil
}

// ──────────────────────────────────────────────────
// subscription.Store
// ──────────────────────────────────────────────────

// CreateSubscription persists a new subscription.
func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions[sub.ID.String()] = sub
	return nil
}

// GetSubscription returns a subscription by ID.
func (s *Store) GetSubscription(_ context.Context, subID id.ID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return nil, gateway.ErrSubscriptionNotFound
	}
	return sub, nil
}

// UpdateSubscription modifies an existing subscription.
func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ID.String()]; !ok {
		return gateway.ErrSubscriptionNotFound
	}
	sub.UpdatedAt = time.Now().UTC()
	s.subscriptions[sub.ID.String()] = sub
	return nil
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(_ context.Context, subID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[subID.String()]; !ok {
		return gateway.ErrSubscriptionNotFound
	}
	delete(s.subscriptions, subID.String())
	return nil
}

// ListSubscriptions returns subscriptions for a tenant, optionally filtered.
func (s *Store) ListSubscriptions(_ context.Context, tenantID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return applyPagination(s.filterSubscriptions(tenantID, opts), opts.Offset, opts.Limit), nil
}

// CountSubscriptions returns the subscription count under the list filter.
func (s *Store) CountSubscriptions(_ context.Context, tenantID string, opts subscription.ListOpts) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.filterSubscriptions(tenantID, opts)), nil
}

// filterSubscriptions is called with s.mu held.
func (s *Store) filterSubscriptions(tenantID string, opts subscription.ListOpts) []*subscription.Subscription {
	result := make([]*subscription.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		if sub.TenantID != tenantID {
			continue
		}
		if opts.Status != nil && sub.Status != *opts.Status {
			continue
		}
		result = append(result, sub)
	}

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
	return result
}

// Match finds all active subscriptions for a tenant whose event set contains
// eventType.
func (s *Store) Match(_ context.Context, tenantID, eventType string) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, sub := range s.subscriptions {
		if sub.TenantID != tenantID || sub.Status != subscription.StatusActive {
			continue
		}
		if sub.Subscribed(eventType) {
			result = append(result, sub)
		}
	}
	return result, nil
}

// RecordDeliverySummary updates the rolling last-delivery summary.
func (s *Store) RecordDeliverySummary(_ context.Context, subID id.ID, status int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return gateway.ErrSubscriptionNotFound
	}
	sub.LastDeliveryAt = &at
	sub.LastDeliveryStatus = &status
	return nil
}

// ──────────────────────────────────────────────────
// gitsync.Store
// ──────────────────────────────────────────────────

// CreateSyncConfig persists a new sync config.
func (s *Store) CreateSyncConfig(_ context.Context, cfg *gitsync.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncConfigs[cfg.ID.String()] = cfg
	return nil
}

// GetSyncConfig returns a sync config by ID.
func (s *Store) GetSyncConfig(_ context.Context, cfgID id.ID) (*gitsync.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.syncConfigs[cfgID.String()]
	if !ok {
		return nil, gateway.ErrSyncConfigNotFound
	}
	return cfg, nil
}

// UpdateSyncConfig modifies an existing sync config.
func (s *Store) UpdateSyncConfig(_ context.Context, cfg *gitsync.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.syncConfigs[cfg.ID.String()]; !ok {
		return gateway.ErrSyncConfigNotFound
	}
	cfg.UpdatedAt = time.Now().UTC()
	s.syncConfigs[cfg.ID.String()] = cfg
	return nil
}

// DeleteSyncConfig removes a sync config.
func (s *Store) DeleteSyncConfig(_ context.Context, cfgID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.syncConfigs[cfgID.String()]; !ok {
		return gateway.ErrSyncConfigNotFound
	}
	delete(s.syncConfigs, cfgID.String())
	return nil
}

// ListSyncConfigs returns sync configs for a tenant.
func (s *Store) ListSyncConfigs(_ context.Context, tenantID string, opts gitsync.ListOpts) ([]*gitsync.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*gitsync.Config, 0, len(s.syncConfigs))
	for _, cfg := range s.syncConfigs {
		if cfg.TenantID != tenantID {
			continue
		}
		result = append(result, cfg)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// SetSyncStatus transitions a config's sync state.
func (s *Store) SetSyncStatus(_ context.Context, cfgID id.ID, status gitsync.Status, errMsg *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.syncConfigs[cfgID.String()]
	if !ok {
		return gateway.ErrSyncConfigNotFound
	}

	cfg.Status = status
	cfg.LastSyncError = errMsg
	if !at.IsZero() {
		cfg.LastSyncAt = &at
	}
	cfg.UpdatedAt = time.Now().UTC()
	return nil
}

// ──────────────────────────────────────────────────
// delivery.LogStore
// ──────────────────────────────────────────────────

// AppendDelivery records one delivery attempt.
func (s *Store) AppendDelivery(_ context.Context, d *delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveries[d.ID.String()] = d
	s.deliveryLog = append(s.deliveryLog, d)
	return nil
}

// GetDelivery returns a delivery record by ID.
func (s *Store) GetDelivery(_ context.Context, deliveryID id.ID) (*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deliveries[deliveryID.String()]
	if !ok {
		return nil, gateway.ErrDeliveryNotFound
	}
	return d, nil
}

// ListDeliveries returns the delivery log for a subscription, newest first.
func (s *Store) ListDeliveries(_ context.Context, subscriptionID id.ID, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return applyPagination(s.filterDeliveries(subscriptionID, opts), opts.Offset, opts.Limit), nil
}

// CountDeliveries returns the log record count under the list filter.
func (s *Store) CountDeliveries(_ context.Context, subscriptionID id.ID, opts delivery.ListOpts) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.filterDeliveries(subscriptionID, opts)), nil
}

// filterDeliveries is called with s.mu held. The log is kept in append
// order, so walking it backwards yields newest first.
func (s *Store) filterDeliveries(subscriptionID id.ID, opts delivery.ListOpts) []*delivery.Delivery {
	var result []*delivery.Delivery
	for i := len(s.deliveryLog) - 1; i >= 0; i-- {
		d := s.deliveryLog[i]
		if d.SubscriptionID.String() != subscriptionID.String() {
			continue
		}
		if opts.Manual != nil && d.Manual != *opts.Manual {
			continue
		}
		result = append(result, d)
	}
	if opts.SortAsc {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	return result
}

// ──────────────────────────────────────────────────
// ratelimit.CounterStore
// ──────────────────────────────────────────────────

// Increment bumps the window counter for key.
func (s *Store) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	return s.counters.Increment(ctx, key, window)
}

// Peek returns the current window counter for key without incrementing.
func (s *Store) Peek(ctx context.Context, key string) (int, time.Time, bool, error) {
	return s.counters.Peek(ctx, key)
}

// SweepEvery runs expired-window cleanup until ctx is cancelled.
func (s *Store) SweepEvery(ctx context.Context, interval time.Duration) {
	s.counters.SweepEvery(ctx, interval)
}

// applyPagination slices a result set by offset/limit. Limit 0 means all.
func applyPagination[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
