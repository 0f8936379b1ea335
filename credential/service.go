package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
)

// Input is the creation payload for credentials.
type Input struct {
	// TenantID identifies the owning tenant.
	TenantID string `json:"tenant_id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// Tier determines the rate quota.
	Tier Tier `json:"tier"`

	// AllowedOrigins is the CORS allow-list.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// Issued pairs a stored credential with its plaintext secret. The secret is
// returned exactly once, at issuance, and is never retrievable again.
type Issued struct {
	Credential *Credential `json:"credential"`
	Secret     string      `json:"secret"`
}

// Service provides credential issuance and resolution.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new credential service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Issue creates a credential and returns it with the plaintext secret.
func (svc *Service) Issue(ctx context.Context, in Input) (*Issued, error) {
	if in.TenantID == "" {
		return nil, &ValidationError{Field: "tenant_id", Message: "required"}
	}
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if in.Tier < TierFree || in.Tier > TierEnterprise {
		return nil, &ValidationError{Field: "tier", Message: "unknown tier"}
	}

	secret := generateSecret(in.Tier)

	c := &Credential{
		Entity:         entity.New(),
		ID:             id.NewCredentialID(),
		KeyPrefix:      secret[:len(secretPrefix(in.Tier))+6],
		SecretHash:     HashSecret(secret),
		TenantID:       in.TenantID,
		Name:           in.Name,
		Tier:           in.Tier,
		AllowedOrigins: in.AllowedOrigins,
		Status:         StatusActive,
	}

	if err := svc.store.CreateCredential(ctx, c); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "credential issued",
		"credential_id", c.ID, "tenant_id", c.TenantID, "tier", c.Tier)

	return &Issued{Credential: c, Secret: secret}, nil
}

// Resolve authenticates a presented secret: hash, lookup, reject revoked,
// stamp last-used. Returns ErrCredentialNotFound-style store errors for
// unknown secrets.
func (svc *Service) Resolve(ctx context.Context, secret string) (*Credential, error) {
	c, err := svc.store.GetCredentialBySecretHash(ctx, HashSecret(secret))
	if err != nil {
		return nil, err
	}

	if touchErr := svc.store.TouchCredential(ctx, c.ID); touchErr != nil {
		// Authentication already succeeded; a failed stamp is not fatal.
		svc.logger.WarnContext(ctx, "touch credential failed",
			"credential_id", c.ID, "error", touchErr)
	}

	return c, nil
}

// Revoke marks a credential revoked. Terminal.
func (svc *Service) Revoke(ctx context.Context, credID id.ID) error {
	if err := svc.store.RevokeCredential(ctx, credID); err != nil {
		return err
	}
	svc.logger.InfoContext(ctx, "credential revoked", "credential_id", credID)
	return nil
}

// Get returns a credential by ID.
func (svc *Service) Get(ctx context.Context, credID id.ID) (*Credential, error) {
	return svc.store.GetCredential(ctx, credID)
}

// List returns credentials for a tenant.
func (svc *Service) List(ctx context.Context, tenantID string, opts ListOpts) ([]*Credential, error) {
	return svc.store.ListCredentials(ctx, tenantID, opts)
}

// HashSecret returns the hex SHA-256 digest of a plaintext secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// secretPrefix returns the non-secret display prefix for a tier.
func secretPrefix(t Tier) string {
	switch t {
	case TierEnterprise:
		return "sk_ent_"
	case TierPro:
		return "sk_pro_"
	case TierStarter:
		return "sk_str_"
	default:
		return "sk_free_"
	}
}

// generateSecret creates a random API secret for the given tier.
func generateSecret(t Tier) string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		panic("credential: failed to generate random secret: " + err.Error())
	}
	return secretPrefix(t) + hex.EncodeToString(b)
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "credential validation: " + e.Field + ": " + e.Message
}
