package upstream

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/speckit/gateway"
	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/id"
)

// compile-time interface check.
var _ credential.Store = (*CredentialStore)(nil)

// CredentialStore implements credential.Store against the upstream store's
// API-key endpoints. Durable storage lives upstream; the gateway resolves and
// mutates credentials through this adapter.
type CredentialStore struct {
	client *Client
}

// NewCredentialStore creates a credential adapter over the upstream client.
func NewCredentialStore(client *Client) *CredentialStore {
	return &CredentialStore{client: client}
}

// credentialRecord is the upstream wire shape. The model keeps SecretHash out
// of JSON; the store still has to persist it, so the adapter carries it
// explicitly.
type credentialRecord struct {
	*credential.Credential
	SecretHash string `json:"secret_hash"`
}

// CreateCredential persists a new credential record (hash only, never the
// plaintext secret).
func (s *CredentialStore) CreateCredential(ctx context.Context, c *credential.Credential) error {
	rec := credentialRecord{Credential: c, SecretHash: c.SecretHash}
	return s.client.Post(ctx, "/api-keys", rec, nil)
}

// GetCredential returns a credential by ID.
func (s *CredentialStore) GetCredential(ctx context.Context, credID id.ID) (*credential.Credential, error) {
	var c credential.Credential
	if _, err := s.client.Get(ctx, "/api-keys/"+credID.String(), nil, &c); err != nil {
		return nil, translateNotFound(err, gateway.ErrCredentialNotFound)
	}
	return &c, nil
}

// GetCredentialBySecretHash resolves a presented secret's hash through the
// upstream lookup endpoint. A revoked credential resolves to
// ErrCredentialRevoked.
func (s *CredentialStore) GetCredentialBySecretHash(ctx context.Context, hash string) (*credential.Credential, error) {
	var c credential.Credential
	q := url.Values{"secretHash": {hash}}
	if _, err := s.client.Get(ctx, "/api-keys/lookup", q, &c); err != nil {
		return nil, translateNotFound(err, gateway.ErrCredentialNotFound)
	}
	if c.Status == credential.StatusRevoked {
		return nil, gateway.ErrCredentialRevoked
	}
	return &c, nil
}

// ListCredentials returns credentials for a tenant.
func (s *CredentialStore) ListCredentials(ctx context.Context, tenantID string, opts credential.ListOpts) ([]*credential.Credential, error) {
	q := url.Values{"tenantId": {tenantID}}
	if opts.Status != nil {
		q.Set("status", string(*opts.Status))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	var list []*credential.Credential
	if _, err := s.client.Get(ctx, "/api-keys", q, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// RevokeCredential marks a credential revoked.
func (s *CredentialStore) RevokeCredential(ctx context.Context, credID id.ID) error {
	err := s.client.Put(ctx, "/api-keys/"+credID.String()+"/revoke", nil, nil)
	return translateNotFound(err, gateway.ErrCredentialNotFound)
}

// TouchCredential stamps the credential's last-used time.
func (s *CredentialStore) TouchCredential(ctx context.Context, credID id.ID) error {
	body := map[string]time.Time{"lastUsedAt": time.Now().UTC()}
	err := s.client.Put(ctx, "/api-keys/"+credID.String()+"/touch", body, nil)
	return translateNotFound(err, gateway.ErrCredentialNotFound)
}

// translateNotFound maps an upstream 404 to the gateway sentinel so callers
// never branch on transport errors.
func translateNotFound(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.NotFound() {
		return sentinel
	}
	return err
}
