package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	gateway "github.com/speckit/gateway"
	"github.com/speckit/gateway/credential"
	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
)

// credentialModel is the JSON representation stored in Redis.
type credentialModel struct {
	ID             string     `json:"id"`
	KeyPrefix      string     `json:"key_prefix"`
	SecretHash     string     `json:"secret_hash"`
	TenantID       string     `json:"tenant_id"`
	Name           string     `json:"name"`
	Tier           string     `json:"tier"`
	AllowedOrigins []string   `json:"allowed_origins"`
	Status         string     `json:"status"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toCredentialModel(c *credential.Credential) *credentialModel {
	return &credentialModel{
		ID:             c.ID.String(),
		KeyPrefix:      c.KeyPrefix,
		SecretHash:     c.SecretHash,
		TenantID:       c.TenantID,
		Name:           c.Name,
		Tier:           c.Tier.String(),
		AllowedOrigins: c.AllowedOrigins,
		Status:         string(c.Status),
		LastUsedAt:     c.LastUsedAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func fromCredentialModel(m *credentialModel) (*credential.Credential, error) {
	credID, err := id.ParseCredentialID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse credential ID %q: %w", m.ID, err)
	}
	tier, err := credential.ParseTier(m.Tier)
	if err != nil {
		return nil, err
	}
	return &credential.Credential{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             credID,
		KeyPrefix:      m.KeyPrefix,
		SecretHash:     m.SecretHash,
		TenantID:       m.TenantID,
		Name:           m.Name,
		Tier:           tier,
		AllowedOrigins: m.AllowedOrigins,
		Status:         credential.Status(m.Status),
		LastUsedAt:     m.LastUsedAt,
	}, nil
}

func (s *Store) CreateCredential(ctx context.Context, c *credential.Credential) error {
	m := toCredentialModel(c)
	key := entityKey(prefixCredential, m.ID)

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("gateway/redis: create credential: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, uniqueCredentialHash+m.SecretHash, m.ID, 0)
	pipe.ZAdd(ctx, zCredentialTenant+m.TenantID, goredis.Z{Score: scoreFromTime(m.CreatedAt), Member: m.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("gateway/redis: create credential indexes: %w", err)
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, credID id.ID) (*credential.Credential, error) {
	var m credentialModel
	if err := s.getEntity(ctx, entityKey(prefixCredential, credID.String()), &m); err != nil {
		if isNotFound(err) {
			return nil, gateway.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("gateway/redis: get credential: %w", err)
	}
	return fromCredentialModel(&m)
}

func (s *Store) GetCredentialBySecretHash(ctx context.Context, hash string) (*credential.Credential, error) {
	entryID, err := s.rdb.Get(ctx, uniqueCredentialHash+hash).Result()
	if err != nil {
		if isRedisNil(err) {
			return nil, gateway.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("gateway/redis: lookup credential hash: %w", err)
	}

	var m credentialModel
	if err := s.getEntity(ctx, entityKey(prefixCredential, entryID), &m); err != nil {
		if isNotFound(err) {
			return nil, gateway.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("gateway/redis: get credential by hash: %w", err)
	}
	// The hash index survives revocation so a revoked key is told apart
	// from one that never existed.
	if credential.Status(m.Status) == credential.StatusRevoked {
		return nil, gateway.ErrCredentialRevoked
	}
	return fromCredentialModel(&m)
}

func (s *Store) ListCredentials(ctx context.Context, tenantID string, opts credential.ListOpts) ([]*credential.Credential, error) {
	ids, err := s.rdb.ZRange(ctx, zCredentialTenant+tenantID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("gateway/redis: list credentials: %w", err)
	}

	result := make([]*credential.Credential, 0, len(ids))
	for _, entryID := range ids {
		var m credentialModel
		if err := s.getEntity(ctx, entityKey(prefixCredential, entryID), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if opts.Status != nil && credential.Status(m.Status) != *opts.Status {
			continue
		}
		c, err := fromCredentialModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	if opts.SortField != "" || opts.SortDesc {
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
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) RevokeCredential(ctx context.Context, credID id.ID) error {
	key := entityKey(prefixCredential, credID.String())

	var m credentialModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isNotFound(err) {
			return gateway.ErrCredentialNotFound
		}
		return fmt.Errorf("gateway/redis: revoke credential get: %w", err)
	}

	m.Status = string(credential.StatusRevoked)
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, key, &m); err != nil {
		return fmt.Errorf("gateway/redis: revoke credential: %w", err)
	}
	return nil
}

func (s *Store) TouchCredential(ctx context.Context, credID id.ID) error {
	key := entityKey(prefixCredential, credID.String())

	var m credentialModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isNotFound(err) {
			return gateway.ErrCredentialNotFound
		}
		return fmt.Errorf("gateway/redis: touch credential get: %w", err)
	}

	ts := now()
	m.LastUsedAt = &ts
	m.UpdatedAt = ts

	if err := s.setEntity(ctx, key, &m); err != nil {
		return fmt.Errorf("gateway/redis: touch credential: %w", err)
	}
	return nil
}
