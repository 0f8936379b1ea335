package gateway

import "github.com/speckit/gateway/internal/gwerr"

// Sentinel errors returned by gateway operations. They live in
// internal/gwerr so lower packages can match on them; these re-exports
// are the public surface.
var (
	// ErrNoStore is returned when a Gateway is created without a store.
	ErrNoStore = gwerr.ErrNoStore

	// ErrCredentialNotFound is returned when no credential matches a presented secret or ID.
	ErrCredentialNotFound = gwerr.ErrCredentialNotFound

	// ErrCredentialRevoked is returned when authenticating with a revoked credential.
	ErrCredentialRevoked = gwerr.ErrCredentialRevoked

	// ErrSubscriptionNotFound is returned when a webhook subscription cannot be found.
	ErrSubscriptionNotFound = gwerr.ErrSubscriptionNotFound

	// ErrSyncConfigNotFound is returned when a sync config cannot be found.
	ErrSyncConfigNotFound = gwerr.ErrSyncConfigNotFound

	// ErrEventTypeUnknown is returned when an event type is not in the catalog vocabulary.
	ErrEventTypeUnknown = gwerr.ErrEventTypeUnknown

	// ErrPayloadValidationFailed is returned when event data fails JSON Schema validation.
	ErrPayloadValidationFailed = gwerr.ErrPayloadValidationFailed

	// ErrStoreClosed is returned when a store operation is attempted after the store is closed.
	ErrStoreClosed = gwerr.ErrStoreClosed

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = gwerr.ErrMigrationFailed

	// ErrDeliveryNotFound is returned when a delivery log entry cannot be found.
	ErrDeliveryNotFound = gwerr.ErrDeliveryNotFound
)
