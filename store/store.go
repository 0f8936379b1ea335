// Package store defines the composite Store interface for all gateway
// persistence.
//
// Each subsystem defines its own store interface; the aggregate Store
// composes them all. Backends implement the aggregate, callers depend only on
// the subsystem slice they use.
package store

import (
	"context"

	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/delivery"
	"github.com/speckit/gateway/gitsync"
	"github.com/speckit/gateway/ratelimit"
	"github.com/speckit/gateway/subscription"
)

// Store is the aggregate persistence interface.
type Store interface {
	credential.Store
	subscription.Store
	gitsync.Store
	delivery.LogStore
	ratelimit.CounterStore

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
