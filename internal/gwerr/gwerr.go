// Package gwerr holds the gateway's sentinel errors. It sits below every
// other package so the HTTP layer can match on them without importing the
// root package. Callers outside the module use the root re-exports.
package gwerr

import "errors"

var (
	// ErrNoStore is returned when a Gateway is created without a store.
	ErrNoStore = errors.New("gateway: store is required")

	// ErrCredentialNotFound is returned when no credential matches a presented secret or ID.
	ErrCredentialNotFound = errors.New("gateway: credential not found")

	// ErrCredentialRevoked is returned when authenticating with a revoked credential.
	ErrCredentialRevoked = errors.New("gateway: credential is revoked")

	// ErrSubscriptionNotFound is returned when a webhook subscription cannot be found.
	ErrSubscriptionNotFound = errors.New("gateway: subscription not found")

	// ErrSyncConfigNotFound is returned when a sync config cannot be found.
	ErrSyncConfigNotFound = errors.New("gateway: sync config not found")

	// ErrEventTypeUnknown is returned when an event type is not in the catalog vocabulary.
	ErrEventTypeUnknown = errors.New("gateway: unknown event type")

	// ErrPayloadValidationFailed is returned when event data fails JSON Schema validation.
	ErrPayloadValidationFailed = errors.New("gateway: payload validation failed")

	// ErrStoreClosed is returned when a store operation is attempted after the store is closed.
	ErrStoreClosed = errors.New("gateway: store is closed")

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = errors.New("gateway: migration failed")

	// ErrDeliveryNotFound is returned when a delivery log entry cannot be found.
	ErrDeliveryNotFound = errors.New("gateway: delivery not found")
)
