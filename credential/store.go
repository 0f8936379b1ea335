package credential

import (
	"context"

	"github.com/speckit/gateway/id"
)

// Store defines the persistence contract for API credentials.
//
// Durable credential records are owned by the upstream work-item store; this
// interface is the adapter boundary the gateway resolves them through. The
// memory implementation exists for tests and single-instance setups.
type Store interface {
	// CreateCredential persists a new credential (hash only, never the secret).
	CreateCredential(ctx context.Context, c *Credential) error

	// GetCredential returns a credential by ID.
	GetCredential(ctx context.Context, credID id.ID) (*Credential, error)

	// GetCredentialBySecretHash resolves a presented secret's hash to a
	// credential. This is the authentication hot path.
	GetCredentialBySecretHash(ctx context.Context, hash string) (*Credential, error)

	// ListCredentials returns credentials for a tenant.
	ListCredentials(ctx context.Context, tenantID string, opts ListOpts) ([]*Credential, error)

	// RevokeCredential marks a credential revoked. Terminal.
	RevokeCredential(ctx context.Context, credID id.ID) error

	// TouchCredential stamps the credential's last-used time.
	TouchCredential(ctx context.Context, credID id.ID) error
}
