// Package credential models API credentials and resolves presented secrets
// to a tenant identity, tier, and allowed origins.
package credential

import (
	"fmt"
	"time"

	"github.com/speckit/gateway/id"
	"github.com/speckit/gateway/internal/entity"
)

// Tier is a named service level determining the per-minute request quota.
// Tiers are strictly ordered: free < starter < pro < enterprise.
type Tier int

// Tier constants in ascending order.
const (
	TierFree Tier = iota
	TierStarter
	TierPro
	TierEnterprise
)

var tierNames = [...]string{"free", "starter", "pro", "enterprise"}

// Tiers lists all tiers in ascending order.
func Tiers() []Tier {
	return []Tier{TierFree, TierStarter, TierPro, TierEnterprise}
}

// String returns the tier name.
func (t Tier) String() string {
	if t < TierFree || t > TierEnterprise {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier parses a tier name. Unknown names are an error.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if name == s {
			return Tier(i), nil
		}
	}
	return TierFree, fmt.Errorf("credential: unknown tier %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(data []byte) error {
	parsed, err := ParseTier(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Quotas maps each tier to its requests-per-minute ceiling. The table is
// resolved once at startup; an incomplete or non-monotone table is a
// configuration error, not a request-time condition.
type Quotas map[Tier]int

// DefaultQuotas is the standard tier table.
var DefaultQuotas = Quotas{
	TierFree:       60,
	TierStarter:    300,
	TierPro:        1000,
	TierEnterprise: 5000,
}

// Validate checks that every tier has a positive quota and that quotas are
// non-decreasing in tier order.
func (q Quotas) Validate() error {
	prev := 0
	for _, t := range Tiers() {
		limit, ok := q[t]
		if !ok {
			return fmt.Errorf("credential: quota table missing tier %q", t)
		}
		if limit <= 0 {
			return fmt.Errorf("credential: quota for tier %q must be positive, got %d", t, limit)
		}
		if limit < prev {
			return fmt.Errorf("credential: quota for tier %q (%d) is below the previous tier (%d)", t, limit, prev)
		}
		prev = limit
	}
	return nil
}

// Status is the lifecycle state of a credential.
type Status string

const (
	// StatusActive means the credential authenticates requests.
	StatusActive Status = "active"

	// StatusRevoked is terminal: no further authentication succeeds.
	StatusRevoked Status = "revoked"
)

// Credential identifies an API caller. The plaintext secret exists only at
// issuance time; only the SHA-256 hash persists.
type Credential struct {
	entity.Entity

	// ID is the unique TypeID for this credential.
	ID id.ID `json:"id"`

	// KeyPrefix is the non-secret leading fragment of the issued secret,
	// kept for display and audit.
	KeyPrefix string `json:"key_prefix"`

	// SecretHash is the hex SHA-256 of the issued secret. Never serialized.
	SecretHash string `json:"-"`

	// TenantID identifies the owning tenant/organization.
	TenantID string `json:"tenant_id"`

	// Name is a human-readable label for the credential.
	Name string `json:"name"`

	// Tier determines the rate quota.
	Tier Tier `json:"tier"`

	// AllowedOrigins is the CORS allow-list for this credential.
	// A literal "*" entry matches any origin.
	AllowedOrigins []string `json:"allowed_origins"`

	// Status is active or revoked. Revocation is terminal.
	Status Status `json:"status"`

	// LastUsedAt is updated on every successful authentication.
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// Active reports whether the credential can authenticate requests.
func (c *Credential) Active() bool {
	return c.Status == StatusActive
}

// ListOpts configures filtering, ordering and pagination for credential
// listing. SortField holds a snake_case field name ("created_at", "name");
// empty means created_at ascending.
type ListOpts struct {
	Offset    int
	Limit     int
	Status    *Status
	SortField string
	SortDesc  bool
}
