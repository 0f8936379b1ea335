package credential_test

import (
	"testing"

	"github.com/speckit/gateway/credential"
)

func TestTierOrdering(t *testing.T) {
	if !(credential.TierFree < credential.TierStarter &&
		credential.TierStarter < credential.TierPro &&
		credential.TierPro < credential.TierEnterprise) {
		t.Fatal("tiers must be strictly ordered")
	}
}

func TestParseTier(t *testing.T) {
	for _, name := range []string{"free", "starter", "pro", "enterprise"} {
		tier, err := credential.ParseTier(name)
		if err != nil {
			t.Fatalf("ParseTier(%q): %v", name, err)
		}
		if tier.String() != name {
			t.Fatalf("round trip: got %q, want %q", tier.String(), name)
		}
	}

	if _, err := credential.ParseTier("platinum"); err == nil {
		t.Fatal("unknown tier should be an error")
	}
}

func TestQuotasValidate(t *testing.T) {
	if err := credential.DefaultQuotas.Validate(); err != nil {
		t.Fatalf("default quotas should validate: %v", err)
	}

	missing := credential.Quotas{
		credential.TierFree:    60,
		credential.TierStarter: 300,
	}
	if err := missing.Validate(); err == nil {
		t.Fatal("incomplete quota table should fail validation")
	}

	nonMonotone := credential.Quotas{
		credential.TierFree:       60,
		credential.TierStarter:    30,
		credential.TierPro:        1000,
		credential.TierEnterprise: 5000,
	}
	if err := nonMonotone.Validate(); err == nil {
		t.Fatal("non-monotone quota table should fail validation")
	}

	zero := credential.Quotas{
		credential.TierFree:       0,
		credential.TierStarter:    300,
		credential.TierPro:        1000,
		credential.TierEnterprise: 5000,
	}
	if err := zero.Validate(); err == nil {
		t.Fatal("zero quota should fail validation")
	}
}

func TestHashSecretStable(t *testing.T) {
	a := credential.HashSecret("sk_free_abc")
	b := credential.HashSecret("sk_free_abc")
	if a != b {
		t.Fatal("hash must be deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a == credential.HashSecret("sk_free_abd") {
		t.Fatal("distinct secrets must hash differently")
	}
}
