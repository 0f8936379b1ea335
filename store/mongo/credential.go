package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	gateway "github.com/speckit/gateway"
	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/id"
)

// CreateCredential persists a new credential.
func (s *Store) CreateCredential(ctx context.Context, c *credential.Credential) error {
	m := toCredentialModel(c)

	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: create credential: %w", err)
	}

	return nil
}

// GetCredential returns a credential by ID.
func (s *Store) GetCredential(ctx context.Context, credID id.ID) (*credential.Credential, error) {
	var m credentialModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": credID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, gateway.ErrCredentialNotFound
		}

		return nil, fmt.Errorf("gateway/mongo: get credential: %w", err)
	}

	return fromCredentialModel(&m)
}

// GetCredentialBySecretHash resolves a presented secret's hash.
func (s *Store) GetCredentialBySecretHash(ctx context.Context, hash string) (*credential.Credential, error) {
	var m credentialModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"secret_hash": hash}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, gateway.ErrCredentialNotFound
		}

		return nil, fmt.Errorf("gateway/mongo: get credential by hash: %w", err)
	}

	if credential.Status(m.Status) == credential.StatusRevoked {
		return nil, gateway.ErrCredentialRevoked
	}

	return fromCredentialModel(&m)
}

// ListCredentials returns credentials for a tenant, optionally filtered.
func (s *Store) ListCredentials(ctx context.Context, tenantID string, opts credential.ListOpts) ([]*credential.Credential, error) {
	var models []credentialModel

	filter := bson.M{"tenant_id": tenantID}
	if opts.Status != nil {
		filter["status"] = string(*opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(sortSpec(opts.SortField, opts.SortDesc))

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gateway/mongo: list credentials: %w", err)
	}

	result := make([]*credential.Credential, 0, len(models))

	for i := range models {
		c, err := fromCredentialModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, c)
	}

	return result, nil
}

// RevokeCredential marks a credential revoked.
func (s *Store) RevokeCredential(ctx context.Context, credID id.ID) error {
	res, err := s.mdb.NewUpdate((*credentialModel)(nil)).
		Filter(bson.M{"_id": credID.String()}).
		Set("status", string(credential.StatusRevoked)).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: revoke credential: %w", err)
	}

	if res.MatchedCount() == 0 {
		return gateway.ErrCredentialNotFound
	}

	return nil
}

// TouchCredential stamps the credential's last-used time.
func (s *Store) TouchCredential(ctx context.Context, credID id.ID) error {
	t := now()

	res, err := s.mdb.NewUpdate((*credentialModel)(nil)).
		Filter(bson.M{"_id": credID.String()}).
		Set("last_used_at", t).
		Set("updated_at", t).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gateway/mongo: touch credential: %w", err)
	}

	if res.MatchedCount() == 0 {
		return gateway.ErrCredentialNotFound
	}

	return nil
}
